package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

// mockEmbedder maps each text to a deterministic vector. Texts sharing a
// leading word land close together.
type mockEmbedder struct {
	mu        sync.Mutex
	dim       int
	err       error
	failOn    string
	calls     int
	embedded  int
	overrides map[string][]float32
}

func newMockEmbedder(dim int) *mockEmbedder {
	return &mockEmbedder{dim: dim, overrides: make(map[string][]float32)}
}

func (m *mockEmbedder) vector(text string) []float32 {
	if v, ok := m.overrides[text]; ok {
		return v
	}
	v := make([]float32, m.dim)
	words := strings.Fields(strings.ToLower(text))
	for i, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		weight := float32(1)
		if i > 0 {
			weight = 0.1
		}
		v[int(h.Sum32())%m.dim] += weight
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.failOn != "" && strings.Contains(t, m.failOn) {
			return nil, errors.New("provider rejected text")
		}
		out[i] = m.vector(t)
	}
	m.embedded += len(texts)
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dim }
func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockEmbedder) embeddedTexts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.embedded
}

// mockLLM records the last prompt and returns a canned response.
type mockLLM struct {
	response   string
	err        error
	lastPrompt string
	lastSystem string
	lastOpts   driven.GenerateOptions
	calls      int
}

func (m *mockLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	m.calls++
	m.lastPrompt = prompt
	m.lastOpts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.lastOpts = driven.GenerateOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}
	for _, msg := range messages {
		switch msg.Role {
		case driven.RoleSystem:
			m.lastSystem = msg.Content
		case driven.RoleUser:
			m.lastPrompt = msg.Content
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPromptStore serves fixed templates.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("unknown prompt " + name)
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockExtractor returns fixed pages for one extension.
type mockExtractor struct {
	ext   string
	pages []domain.Page
	err   error
	paths []string
}

func (m *mockExtractor) Name() string                  { return "mock" }
func (m *mockExtractor) SupportedExtensions() []string { return []string{m.ext} }

func (m *mockExtractor) Extract(_ context.Context, path string) ([]domain.Page, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.pages, nil
}

// mockProcessor doubles every chunk.
type mockProcessor struct {
	err error
}

func (m *mockProcessor) Name() string { return "double" }

func (m *mockProcessor) Process(_ context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Chunk, 0, len(chunks)*2)
	for _, c := range chunks {
		half := len(c.Text) / 2
		out = append(out,
			domain.Chunk{SourceID: c.SourceID, PageNumber: c.PageNumber, Text: c.Text[:half]},
			domain.Chunk{SourceID: c.SourceID, PageNumber: c.PageNumber, Text: c.Text[half:]},
		)
	}
	return out, nil
}

// mockJournal fails appends when err is set.
type mockJournal struct {
	mu      sync.Mutex
	entries []domain.JournalEntry
	err     error
}

func (m *mockJournal) Append(_ context.Context, e domain.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockJournal) Recent(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.JournalEntry, 0, len(m.entries))
	for i := len(m.entries) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *mockJournal) Close() error { return nil }

// Ensure mocks satisfy their ports.
var (
	_ driven.EmbeddingService = (*mockEmbedder)(nil)
	_ driven.LLMService       = (*mockLLM)(nil)
	_ driven.PromptStore      = (*mockPromptStore)(nil)
	_ driven.PageExtractor    = (*mockExtractor)(nil)
	_ driven.PostProcessor    = (*mockProcessor)(nil)
	_ driven.MutationJournal  = (*mockJournal)(nil)
)

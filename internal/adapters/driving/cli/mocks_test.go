package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

// mockIndexService implements driving.IndexService for command tests.
type mockIndexService struct {
	listing    domain.DocumentListing
	stats      domain.IndexStats
	hits       []domain.SearchHit
	history    []domain.JournalEntry
	violations []string
	result     domain.MutationResult
	err        error

	calls []string
	limit int
}

func newMockIndexService() *mockIndexService {
	return &mockIndexService{
		listing: domain.DocumentListing{
			"/docs/handbook.pdf": {1, 2, 3},
			"/docs/notes.txt":    {1},
		},
		stats: domain.IndexStats{TotalDocuments: 2, TotalPages: 4, VectorCount: 4, Dimension: 384},
		hits: []domain.SearchHit{{
			Slot:     2,
			Distance: 0.25,
			Record: domain.DocumentRecord{
				DocID:    "/docs/handbook.pdf_page_2",
				Text:     "Employees accrue   twenty days of leave.",
				Metadata: domain.RecordMetadata{SourceID: "/docs/handbook.pdf", PageNumber: 3},
			},
		}},
		history: []domain.JournalEntry{{
			ID:          1,
			Operation:   "insert_document",
			Subject:     "/docs/notes.txt",
			Affected:    1,
			VectorCount: 4,
			Generation:  "gen-1",
			CommittedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		}},
		result: domain.MutationResult{OK: true, Message: "removed 1 records", Affected: 1, VectorCount: 3},
	}
}

func (m *mockIndexService) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *mockIndexService) InsertDocument(
	_ context.Context, id string, chunks []domain.Chunk, opts driving.InsertOptions,
) (domain.MutationResult, error) {
	m.record("insert %s %d %t", id, len(chunks), opts.Replace)
	return m.result, m.err
}

func (m *mockIndexService) RemoveDocument(_ context.Context, id string) (domain.MutationResult, error) {
	m.record("remove %s", id)
	return m.result, m.err
}

func (m *mockIndexService) RemovePage(_ context.Context, id string, page int) (domain.MutationResult, error) {
	m.record("remove-page %s %d", id, page)
	return m.result, m.err
}

func (m *mockIndexService) RemoveMatching(_ context.Context, query string) (domain.MutationResult, error) {
	m.record("remove-matching %s", query)
	return m.result, m.err
}

func (m *mockIndexService) RemoveAll(context.Context) (domain.MutationResult, error) {
	m.record("remove-all")
	return m.result, m.err
}

func (m *mockIndexService) EnumerateDocuments(context.Context) (domain.DocumentListing, error) {
	return m.listing, m.err
}

func (m *mockIndexService) GetStatistics(context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

func (m *mockIndexService) Search(_ context.Context, query string, k int) ([]domain.SearchHit, error) {
	m.record("search %s", query)
	m.limit = k
	return m.hits, m.err
}

func (m *mockIndexService) Verify(context.Context) ([]string, error) {
	return m.violations, m.err
}

func (m *mockIndexService) History(_ context.Context, limit int) ([]domain.JournalEntry, error) {
	m.limit = limit
	return m.history, m.err
}

// mockIngestService implements driving.IngestService. Paths containing
// "broken" fail; paths containing "dup" are reported as already indexed.
type mockIngestService struct {
	ingested []string
	replace  []bool
}

func (m *mockIngestService) IngestFile(
	_ context.Context, path string, opts driving.IngestOptions,
) (domain.MutationResult, error) {
	m.ingested = append(m.ingested, path)
	m.replace = append(m.replace, opts.Replace)
	switch {
	case strings.Contains(path, "broken"):
		return domain.MutationResult{}, errors.New("extract failed")
	case strings.Contains(path, "dup"):
		return domain.MutationResult{Message: path + " is already indexed"}, nil
	}
	return domain.MutationResult{OK: true, Affected: 2, VectorCount: 6}, nil
}

func (m *mockIngestService) SourceID(path string) (string, error) {
	return "/abs/" + filepath.Base(path), nil
}

func (m *mockIngestService) Supports(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// mockAnswerService implements driving.AnswerService.
type mockAnswerService struct {
	answer *domain.Answer
	err    error
	asked  []string
}

func (m *mockAnswerService) Ask(_ context.Context, question string) (*domain.Answer, error) {
	m.asked = append(m.asked, question)
	if m.err != nil {
		return nil, m.err
	}
	out := *m.answer
	out.Question = question
	return &out, nil
}

// mockSettingsService implements driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	values   map[string]string
	keys     map[domain.AIProvider]string
}

func newMockSettingsService() *mockSettingsService {
	s := domain.DefaultAppSettings()
	s.Index.Path = "/home/user/.docagent/index"
	return &mockSettingsService{
		settings: s,
		values:   map[string]string{},
		keys:     map[domain.AIProvider]string{},
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if !strings.Contains(key, ".") {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Values() ([]driving.SettingValue, error) {
	return []driving.SettingValue{
		{Key: "answer.top_k", Value: "4", Default: true},
		{Key: "embedding.provider", Value: "hashing"},
	}, nil
}

func (m *mockSettingsService) SetAPIKey(provider domain.AIProvider, key string) error {
	m.keys[provider] = key
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockValidator implements ProviderValidator.
type mockValidator struct {
	embeddingErr error
	llmErr       error
}

func (m *mockValidator) ValidateEmbedding(context.Context, domain.EmbeddingSettings) error {
	return m.embeddingErr
}

func (m *mockValidator) ValidateLLM(context.Context, domain.LLMSettings) error {
	return m.llmErr
}

// testServices bundles the mocks installed for a test.
type testServices struct {
	index     *mockIndexService
	ingest    *mockIngestService
	answer    *mockAnswerService
	settings  *mockSettingsService
	validator *mockValidator
}

func newTestServices() *testServices {
	return &testServices{
		index:  newMockIndexService(),
		ingest: &mockIngestService{},
		answer: &mockAnswerService{answer: &domain.Answer{
			Text:    "Employees accrue twenty days of leave.",
			Sources: []domain.Source{{File: "/docs/handbook.pdf", Page: 3}},
		}},
		settings:  newMockSettingsService(),
		validator: &mockValidator{},
	}
}

// install swaps the mocks into the command globals and resets flags. The
// returned function restores the previous state.
func (ts *testServices) install() func() {
	oldIndex, oldIngest, oldAnswer := indexService, ingestService, answerService
	oldSettings, oldValidator, oldUnavailable := settingsService, validator, unavailable
	oldBootstrap, oldClose := bootstrap, closeServices

	SetServices(&Services{
		Index:     ts.index,
		Ingest:    ts.ingest,
		Answer:    ts.answer,
		Settings:  ts.settings,
		Validator: ts.validator,
	})
	bootstrap = nil
	resetFlags()

	return func() {
		indexService, ingestService, answerService = oldIndex, oldIngest, oldAnswer
		settingsService, validator, unavailable = oldSettings, oldValidator, oldUnavailable
		bootstrap, closeServices = oldBootstrap, oldClose
		resetFlags()
	}
}

// setupTestServices installs default mocks.
func setupTestServices() func() {
	return newTestServices().install()
}

func resetFlags() {
	flagVerbose, flagConfigDir, flagIndexPath, flagEphemeral = false, "", "", false
	indexAddReplace, indexClearYes = false, false
	indexOutput, settingsOutput = formatTable, formatTable
	historyLimit = 20
	searchLimit, searchJSON = 10, false
	askJSON = false
	watchScan = true
}

// execute runs the root command with args and returns combined output.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

// executeWithInput runs the root command reading stdin from input.
func executeWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	resetCommandFlags(rootCmd)

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetCommandFlags restores every flag of cmd and its subcommands to its default,
// since cobra keeps parsed values between Execute calls.
func resetCommandFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetCommandFlags(sub)
	}
}

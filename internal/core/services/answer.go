package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// DefaultTopK is the number of records retrieved for an answer.
const DefaultTopK = 4

// noContextAnswer is returned when retrieval finds nothing.
const noContextAnswer = "I don't know. The index has no documents to answer from."

// fallbackAnswerPrompt is used when the prompt store is unavailable.
const fallbackAnswerPrompt = "Use the following pieces of context to answer the question at the end. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n" +
	"%s\n\nQuestion: %s\nHelpful Answer:"

// AnswerService answers questions from the pages nearest to the question.
type AnswerService struct {
	index   driving.IndexService
	llm     driven.LLMService
	prompts driven.PromptStore
	topK    int
}

// NewAnswerService creates an answer service. llm may be nil, in which
// case Ask returns domain.ErrLLMUnavailable.
func NewAnswerService(
	index driving.IndexService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	topK int,
) *AnswerService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &AnswerService{
		index:   index,
		llm:     llm,
		prompts: prompts,
		topK:    topK,
	}
}

// Ask retrieves the nearest records and asks the LLM to answer from them.
func (s *AnswerService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	hits, err := s.index.Search(ctx, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(hits) == 0 {
		return &domain.Answer{Question: question, Text: noContextAnswer}, nil
	}

	prompt := fmt.Sprintf(s.template(), buildContext(hits), question)
	logger.Debug("ask %q with %d context records via %s", question, len(hits), s.llm.ModelName())

	text, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Question: question,
		Text:     strings.TrimSpace(text),
		Sources:  sourcesOf(hits),
	}, nil
}

// generate sends prompt as a user turn after the system prompt when one is
// configured, and as a plain completion otherwise.
func (s *AnswerService) generate(ctx context.Context, prompt string) (string, error) {
	if system := s.systemPrompt(); system != "" {
		return s.llm.Chat(ctx, []driven.ChatMessage{
			{Role: driven.RoleSystem, Content: system},
			{Role: driven.RoleUser, Content: prompt},
		}, driven.ChatOptions{Temperature: 0})
	}
	return s.llm.Generate(ctx, prompt, driven.GenerateOptions{Temperature: 0})
}

func (s *AnswerService) systemPrompt() string {
	if s.prompts == nil {
		return ""
	}
	system, err := s.prompts.Load(driven.PromptAnswerSystem)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(system)
}

func (s *AnswerService) template() string {
	if s.prompts == nil {
		return fallbackAnswerPrompt
	}
	tmpl, err := s.prompts.Load(driven.PromptAnswer)
	if err != nil || !validAnswerTemplate(tmpl) {
		logger.Warn("answer prompt unusable, using built-in default")
		return fallbackAnswerPrompt
	}
	return tmpl
}

// validAnswerTemplate reports whether tmpl has exactly two %s verbs and no
// verb other than %%.
func validAnswerTemplate(tmpl string) bool {
	verbs := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 == len(tmpl) {
			return false
		}
		i++
		switch tmpl[i] {
		case 's':
			verbs++
		case '%':
		default:
			return false
		}
	}
	return verbs == 2
}

// buildContext joins the record texts in retrieval order.
func buildContext(hits []domain.SearchHit) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = strings.TrimSpace(h.Record.Text)
	}
	return strings.Join(parts, "\n\n")
}

// sourcesOf returns distinct file/page pairs in retrieval order.
func sourcesOf(hits []domain.SearchHit) []domain.Source {
	seen := make(map[domain.Source]bool, len(hits))
	sources := make([]domain.Source, 0, len(hits))
	for _, h := range hits {
		src := domain.Source{File: h.Record.Metadata.SourceID, Page: h.Record.Metadata.PageNumber}
		if seen[src] {
			continue
		}
		seen[src] = true
		sources = append(sources, src)
	}
	return sources
}

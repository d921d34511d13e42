package driven

import "context"

// Chat roles understood by every LLM adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMService answers prompts built from retrieved pages. A nil LLMService
// leaves indexing and search usable; ask and chat report
// domain.ErrLLMUnavailable.
type LLMService interface {
	// Generate returns the completion of a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat returns the next assistant turn.
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (string, error)

	ModelName() string

	// Ping checks the model is reachable without generating text.
	Ping(ctx context.Context) error

	Close() error
}

// GenerateOptions tunes a single completion. Zero values use the provider
// defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64

	// StopWords end generation when produced.
	StopWords []string
}

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string // RoleSystem, RoleUser or RoleAssistant
	Content string
}

// ChatOptions tunes a chat turn.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}

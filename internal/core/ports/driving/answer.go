package driving

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// AnswerService answers questions from indexed pages.
type AnswerService interface {
	// Ask retrieves relevant pages and asks the LLM to answer from them.
	Ask(ctx context.Context, question string) (*domain.Answer, error)
}

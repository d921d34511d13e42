package driven

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// PostProcessor rewrites extracted page chunks before they are embedded.
// It may drop, split or clean chunks but must keep each one's source and
// page number, since those become the citation.
type PostProcessor interface {
	// Name is the key the processor is registered under.
	Name() string

	Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)
}

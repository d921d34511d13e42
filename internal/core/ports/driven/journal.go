package driven

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// MutationJournal records committed index mutations.
type MutationJournal interface {
	// Append records a committed mutation.
	Append(ctx context.Context, entry domain.JournalEntry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.JournalEntry, error)

	// Close releases resources.
	Close() error
}

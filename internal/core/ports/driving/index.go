package driving

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// IndexService is the upward surface of the index mutation layer.
//
// Mutations return a MutationResult. A predicate that matches nothing is
// reported as OK=false with a nil error. Embedding, dimension, corruption
// and storage failures are reported as OK=false and a non-nil error; the
// previously persisted state is unchanged in every failure case.
type IndexService interface {
	// InsertDocument appends the chunks of one file to the index.
	InsertDocument(ctx context.Context, fileIdentifier string, chunks []domain.Chunk, opts InsertOptions) (domain.MutationResult, error)

	// RemoveDocument removes every page of a source.
	RemoveDocument(ctx context.Context, sourceID string) (domain.MutationResult, error)

	// RemovePage removes one page of a source.
	RemovePage(ctx context.Context, sourceID string, pageNumber int) (domain.MutationResult, error)

	// RemoveMatching removes every record whose text contains query, ignoring case.
	RemoveMatching(ctx context.Context, query string) (domain.MutationResult, error)

	// RemoveAll empties the index. It always succeeds unless persisting fails.
	RemoveAll(ctx context.Context) (domain.MutationResult, error)

	// EnumerateDocuments returns source id to sorted page numbers.
	EnumerateDocuments(ctx context.Context) (domain.DocumentListing, error)

	// GetStatistics returns the index counters.
	GetStatistics(ctx context.Context) (domain.IndexStats, error)

	// Search returns the k records nearest to the query text.
	Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error)

	// Verify loads the persisted state and returns every invariant violation.
	Verify(ctx context.Context) ([]string, error)

	// History returns recent committed mutations, newest first.
	History(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}

// InsertOptions configures InsertDocument.
type InsertOptions struct {
	// Replace removes existing records of the source in the same mutation.
	Replace bool
}

package driven

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// IndexSnapshot is the persisted form of an index: the physical vectors
// and the slot/document pair, always stored and loaded together.
type IndexSnapshot struct {
	// Slots maps slot number (position) to doc_id.
	Slots []string

	// Records maps doc_id to its record.
	Records map[string]domain.DocumentRecord

	// Vectors is the physical index. Vectors.Len() == len(Slots).
	Vectors SimilarityIndex

	// Generation identifies the committed snapshot. Set by Save.
	Generation string
}

// IndexRepository persists index snapshots under a directory path.
type IndexRepository interface {
	// Load returns the committed snapshot at path.
	// Returns (nil, nil) when nothing has been persisted there.
	// Unreadable or inconsistent artifacts yield a domain.CorruptIndexError.
	Load(ctx context.Context, path string) (*IndexSnapshot, error)

	// Save atomically replaces the snapshot at path and returns its generation.
	// On failure the previously committed snapshot is untouched and the
	// error is a domain.StorageError.
	Save(ctx context.Context, path string, snap *IndexSnapshot) (string, error)
}

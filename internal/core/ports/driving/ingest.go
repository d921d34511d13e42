package driving

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// IngestService turns files into chunks and inserts them.
type IngestService interface {
	// IngestFile extracts, chunks and inserts one file.
	IngestFile(ctx context.Context, path string, opts IngestOptions) (domain.MutationResult, error)

	// SourceID returns the normalised source id for a path.
	SourceID(path string) (string, error)

	// Supports reports whether the file type can be extracted.
	Supports(path string) bool
}

// IngestOptions configures IngestFile.
type IngestOptions struct {
	// Replace re-indexes a source that is already present.
	Replace bool
}

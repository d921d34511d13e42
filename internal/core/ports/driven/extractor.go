package driven

import (
	"context"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// PageExtractor reads the text of a file page by page.
type PageExtractor interface {
	// Name returns the extractor name for logging.
	Name() string

	// SupportedExtensions returns lower-case file extensions including the dot.
	SupportedExtensions() []string

	// Extract returns the pages of the file in order, numbered from 1.
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

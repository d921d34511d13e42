package extractors

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// FormFeed separates pages in pdftotext output and in plain text files.
const FormFeed = "\f"

// SplitPages splits text on form feeds into 1-based pages. A trailing empty
// page, as left by a final form feed, is dropped. Empty pages elsewhere keep
// their number so later pages stay aligned with the source.
func SplitPages(text string) []domain.Page {
	parts := strings.Split(text, FormFeed)
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	pages := make([]domain.Page, len(parts))
	for i, p := range parts {
		pages[i] = domain.Page{Number: i + 1, Text: p}
	}
	return pages
}

// ReadFile reads a whole file after checking ctx.
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Package plaintext extracts text files as pages.
package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/extractors"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Extractor reads a text file. Form feeds split pages; otherwise the whole
// file is page 1.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the extractor name for logging.
func (e *Extractor) Name() string {
	return "plaintext"
}

// SupportedExtensions returns the extensions this extractor handles.
func (e *Extractor) SupportedExtensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".rst"}
}

// Extract returns the pages of the file.
func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	data, err := extractors.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return extractors.SplitPages(Decode(data)), nil
}

// Decode returns data as text, replacing invalid UTF-8 and dropping a BOM.
func Decode(data []byte) string {
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return strings.TrimPrefix(text, "\uFEFF")
}

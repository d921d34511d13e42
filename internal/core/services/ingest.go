package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/core/ports/driving"
	"github.com/custodia-labs/docagent/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService extracts pages from files and inserts them into the index.
type IngestService struct {
	index      driving.IndexService
	extractors map[string]driven.PageExtractor
	processor  driven.PostProcessor
}

// NewIngestService creates an ingest service. The processor may be nil.
func NewIngestService(
	index driving.IndexService,
	processor driven.PostProcessor,
	extractors ...driven.PageExtractor,
) *IngestService {
	byExt := make(map[string]driven.PageExtractor)
	for _, e := range extractors {
		for _, ext := range e.SupportedExtensions() {
			byExt[strings.ToLower(ext)] = e
		}
	}
	return &IngestService{
		index:      index,
		extractors: byExt,
		processor:  processor,
	}
}

// SourceID returns the absolute, cleaned path with symlinks resolved. For a
// file that no longer exists only its directory is resolved.
func (s *IngestService) SourceID(path string) (string, error) {
	return NormaliseSourceID(path)
}

// NormaliseSourceID maps a file path to the source id it is indexed under.
func NormaliseSourceID(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty path", domain.ErrInvalidInput)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return filepath.Clean(resolved), nil
	}
	// A removed file can no longer be resolved, but its directory usually
	// can, and the id must match the one it was ingested under.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return filepath.Clean(abs), nil
}

// Supports reports whether an extractor handles the file extension.
func (s *IngestService) Supports(path string) bool {
	_, ok := s.extractors[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IngestFile extracts, chunks and inserts one file.
func (s *IngestService) IngestFile(
	ctx context.Context,
	path string,
	opts driving.IngestOptions,
) (domain.MutationResult, error) {
	sourceID, err := s.SourceID(path)
	if err != nil {
		return domain.MutationResult{}, err
	}

	ext := strings.ToLower(filepath.Ext(sourceID))
	extractor, ok := s.extractors[ext]
	if !ok {
		return domain.MutationResult{}, fmt.Errorf("%w: no extractor for %q files", domain.ErrUnsupportedType, ext)
	}

	logger.Debug("extracting %s with %s", sourceID, extractor.Name())
	pages, err := extractor.Extract(ctx, sourceID)
	if err != nil {
		return domain.MutationResult{}, fmt.Errorf("extract %s: %w", sourceID, err)
	}

	chunks := make([]domain.Chunk, 0, len(pages))
	for _, p := range pages {
		chunks = append(chunks, domain.Chunk{
			SourceID:   sourceID,
			PageNumber: p.Number,
			Text:       p.Text,
		})
	}

	if s.processor != nil {
		chunks, err = s.processor.Process(ctx, chunks)
		if err != nil {
			return domain.MutationResult{}, fmt.Errorf("process %s: %w", sourceID, err)
		}
	}
	logger.Debug("%s: %d pages, %d chunks", sourceID, len(pages), len(chunks))

	if len(chunks) == 0 {
		return domain.MutationResult{
			OK:      false,
			Message: fmt.Sprintf("%s has no extractable text", sourceID),
		}, nil
	}

	return s.index.InsertDocument(ctx, sourceID, chunks, driving.InsertOptions{Replace: opts.Replace})
}

package postprocessors

import (
	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/postprocessors/chunker"
)

// RegisterDefaults adds the built-in processors to r.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
}

// DefaultPipeline is the chunker configured from settings.
func DefaultPipeline(r *Registry, settings domain.IngestSettings) (*Pipeline, error) {
	c, err := r.Build("chunker", map[string]any{
		"chunk_size": settings.ChunkSize,
		"overlap":    settings.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}
	return NewPipeline(c), nil
}

// buildChunker reads chunk_size (runes per chunk, 0 keeps whole pages) and
// overlap from cfg. Numbers may arrive as int, int64 or float64.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option
	if size, ok := intOption(cfg["chunk_size"]); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intOption(cfg["overlap"]); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	return chunker.New(opts...), nil
}

func intOption(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

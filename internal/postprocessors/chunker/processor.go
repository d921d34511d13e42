// Package chunker provides a fixed-size page chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/docagent/internal/core/domain"
)

// DefaultChunkSize keeps one chunk per page.
const DefaultChunkSize = 0

// DefaultChunkOverlap is the default number of overlapping runes.
const DefaultChunkOverlap = 100

// Processor splits page chunks into fixed-size windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the window size in runes. Zero disables splitting.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between windows in runes.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.chunkSize > 0 && p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits every chunk longer than the window size. Split chunks keep
// the source id and page number of their page. Blank chunks are dropped.
func (p *Processor) Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, 0, len(chunks))

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		if p.chunkSize == 0 {
			out = append(out, c)
			continue
		}
		for _, text := range p.split(c.Text) {
			out = append(out, domain.Chunk{
				SourceID:   c.SourceID,
				PageNumber: c.PageNumber,
				Text:       text,
			})
		}
	}

	return out, nil
}

// split cuts text into windows of chunkSize runes advancing by
// chunkSize-overlap.
func (p *Processor) split(text string) []string {
	runes := []rune(text)
	if len(runes) <= p.chunkSize {
		return []string{text}
	}

	step := p.chunkSize - p.overlap
	parts := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + p.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

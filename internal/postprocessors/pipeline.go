// Package postprocessors turns extracted pages into the chunks that are
// embedded, one slot per chunk.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docagent/internal/core/domain"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
	"github.com/custodia-labs/docagent/internal/logger"
)

var _ driven.PostProcessor = (*Pipeline)(nil)

// Pipeline runs processors in order, feeding each the previous output.
// It is itself a PostProcessor so the ingest service sees one stage.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline returns a pipeline over processors, in order.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Name implements driven.PostProcessor.
func (p *Pipeline) Name() string { return "pipeline" }

// Process runs every stage. A stage that leaves no chunks ends the run
// early with an empty result.
func (p *Pipeline) Process(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for _, stage := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in := len(chunks)
		out, err := stage.Process(ctx, chunks)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", stage.Name(), err)
		}
		logger.Debug("processor %s: %d chunks in, %d out", stage.Name(), in, len(out))
		if len(out) == 0 {
			return nil, nil
		}
		chunks = out
	}
	return chunks, nil
}

// Add appends a stage.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int { return len(p.processors) }

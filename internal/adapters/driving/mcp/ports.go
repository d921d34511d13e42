// Package mcp serves the index to Model Context Protocol clients. Each
// index, ingest and answer operation is a tool; listings and stats are
// also resources.
package mcp

import (
	"errors"

	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

var ErrMissingIndexService = errors.New("mcp: index service is required")

// Ports are the services behind the tools. Only Index is required; tools
// whose service is nil are not registered.
type Ports struct {
	Index driving.IndexService

	// Ingest extracts files for insert_document. Without it source ids are
	// taken as given.
	Ingest driving.IngestService

	Answer driving.AnswerService
}

// Validate reports a missing required service.
func (p *Ports) Validate() error {
	if p == nil || p.Index == nil {
		return ErrMissingIndexService
	}
	return nil
}

// Package tui is the interactive chat screen behind `docagent chat`.
package tui

import (
	"errors"

	"github.com/custodia-labs/docagent/internal/core/ports/driving"
)

var (
	ErrInvalidPorts         = errors.New("tui: invalid ports configuration")
	ErrMissingAnswerService = errors.New("tui: answer service is required")
)

// Ports are the services the chat screen drives. Index is optional; without
// it the documents view is hidden.
type Ports struct {
	Answer driving.AnswerService
	Index  driving.IndexService
}

// NewPorts bundles answer and index.
func NewPorts(answer driving.AnswerService, index driving.IndexService) *Ports {
	return &Ports{Answer: answer, Index: index}
}

// Validate reports a missing required service.
func (p *Ports) Validate() error {
	switch {
	case p == nil:
		return ErrInvalidPorts
	case p.Answer == nil:
		return ErrMissingAnswerService
	}
	return nil
}

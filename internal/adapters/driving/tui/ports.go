// Package tui provides an interactive terminal user interface for replyguard.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Retrieval answers index queries. Required.
	Retrieval driving.RetrievalService

	// Masking masks queries before they are embedded. Optional.
	Masking driving.MaskingService

	// Reply drafts customer replies. Optional; the reply view is hidden without it.
	Reply driving.ReplyService

	// Index reports status and build history. Optional.
	Index driving.IndexService
}

// NewPorts creates a Ports aggregate with the required services.
func NewPorts(retrieval driving.RetrievalService, masking driving.MaskingService) *Ports {
	return &Ports{
		Retrieval: retrieval,
		Masking:   masking,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}

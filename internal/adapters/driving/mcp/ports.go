package mcp

import (
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Masking tokenises PII in tool input.
	Masking driving.MaskingService

	// Retrieval answers index queries.
	Retrieval driving.RetrievalService

	// Reply drafts customer replies. Optional; the reply tool is not
	// registered without it.
	Reply driving.ReplyService

	// Index exposes build status and history. Optional.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Masking == nil {
		return ErrMissingMaskingService
	}
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}

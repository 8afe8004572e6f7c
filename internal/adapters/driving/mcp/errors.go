// Package mcp provides an MCP (Model Context Protocol) server adapter for replyguard.
// It lets AI assistants mask text, query the document index and draft
// customer replies without ever seeing unmasked PII.
package mcp

import "errors"

var (
	// ErrMissingMaskingService is returned when the masking service is not provided.
	ErrMissingMaskingService = errors.New("mcp: masking service is required")

	// ErrMissingRetrievalService is returned when the retrieval service is not provided.
	ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")
)

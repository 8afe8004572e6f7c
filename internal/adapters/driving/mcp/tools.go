package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// MaskInput is the input schema for the mask_text tool.
type MaskInput struct {
	Text string `json:"text" jsonschema:"text that may contain emails or phone numbers"`
}

// MaskOutput is the output schema for the mask_text tool.
// Originals are never returned, only partial masks.
type MaskOutput struct {
	Masked string        `json:"masked"`
	Tokens []TokenOutput `json:"tokens"`
}

// TokenOutput describes one issued mask token.
type TokenOutput struct {
	Token   string `json:"token"`
	Kind    string `json:"kind"`
	Display string `json:"display"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the question to find relevant documents for"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of results to return (default 3)"`
	Owner string `json:"owner,omitempty" jsonschema:"restrict results to chunks owned by this customer id"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []ChunkOutput `json:"results"`
	Count   int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Owner      string  `json:"owner,omitempty"`
	Distance   float64 `json:"distance"`
	Text       string  `json:"text"`
}

// ReplyInput is the input schema for the reply tool.
type ReplyInput struct {
	Message   string `json:"message" jsonschema:"the raw customer message"`
	UserToken string `json:"user_token,omitempty" jsonschema:"customer token used to personalise the reply"`
}

// ReplyOutput is the output schema for the reply tool.
type ReplyOutput struct {
	Reply   string   `json:"reply"`
	Sources []string `json:"sources"`
	Offline bool     `json:"offline"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "mask_text",
		Description: "Replace emails and phone numbers with tokens and show partial masks",
	}, s.handleMask)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the indexed document chunks nearest to a query",
	}, s.handleRetrieve)

	if s.ports.Reply != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "reply",
			Description: "Draft a PII-safe reply to a customer message",
		}, s.handleReply)
	}
}

// handleMask handles the mask_text tool invocation.
func (s *Server) handleMask(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input MaskInput,
) (*mcp.CallToolResult, MaskOutput, error) {
	masked, mapping := s.ports.Masking.Mask(input.Text)

	output := MaskOutput{
		Masked: masked,
		Tokens: make([]TokenOutput, 0, mapping.Len()),
	}
	for _, tok := range mapping.Tokens() {
		output.Tokens = append(output.Tokens, TokenOutput{
			Token:   tok.String(),
			Kind:    tok.Kind().String(),
			Display: s.ports.Masking.UnmaskForDisplay(tok.String(), mapping),
		})
	}

	return nil, output, nil
}

// handleRetrieve handles the retrieve tool invocation. The query is masked
// before it is embedded.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if input.Query == "" {
		return nil, RetrieveOutput{}, errors.New("query is required")
	}

	opts := domain.QueryOptions{K: input.K}
	if input.Owner != "" {
		opts.Filter = domain.OwnerFilter(input.Owner)
	}

	masked, _ := s.ports.Masking.Mask(input.Query)
	results, err := s.ports.Retrieval.Query(ctx, masked, opts)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]ChunkOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = ChunkOutput{
			Source:     r.Metadata.Source,
			ChunkIndex: r.Metadata.ChunkIndex,
			Owner:      r.Metadata.Owner(),
			Distance:   r.Score,
			Text:       r.Text,
		}
	}

	return nil, output, nil
}

// handleReply handles the reply tool invocation.
func (s *Server) handleReply(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReplyInput,
) (*mcp.CallToolResult, ReplyOutput, error) {
	if input.Message == "" {
		return nil, ReplyOutput{}, errors.New("message is required")
	}

	resp, err := s.ports.Reply.Reply(ctx, domain.ReplyRequest{
		UserText:  input.Message,
		UserToken: input.UserToken,
	})
	if err != nil {
		return nil, ReplyOutput{}, err
	}

	sources := make([]string, len(resp.Sources))
	for i, md := range resp.Sources {
		sources[i] = domain.SearchResult{Metadata: md}.Label()
	}

	return nil, ReplyOutput{
		Reply:   resp.Reply,
		Sources: sources,
		Offline: resp.Offline,
	}, nil
}

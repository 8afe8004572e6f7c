package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for replyguard resources.
	uriScheme = "replyguard://"

	statusURI  = uriScheme + "index/status"
	historyURI = uriScheme + "index/history"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         statusURI,
		Name:        "index-status",
		Description: "Manifest of the current index generation",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	if s.ports.Index == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         historyURI,
		Name:        "index-history",
		Description: "Recent index build attempts, newest first",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: historyURI + "/{limit}",
		Name:        "index-history-limited",
		Description: "The given number of recent index build attempts",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

// manifestInfo is the JSON view of an index manifest.
type manifestInfo struct {
	Generation    string    `json:"generation"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	ChunkCount    int       `json:"chunk_count"`
	DocumentCount int       `json:"document_count"`
	SkippedCount  int       `json:"skipped_count"`
	ChunkSize     int       `json:"chunk_size"`
	Overlap       int       `json:"overlap"`
	BuiltAt       time.Time `json:"built_at"`
}

// buildInfo is the JSON view of a build record.
type buildInfo struct {
	ID         string    `json:"id"`
	Generation string    `json:"generation"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Model      string    `json:"model"`
	ChunkCount int       `json:"chunk_count"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// handleStatusResource returns the current manifest. The index service is
// preferred since it reads what is published rather than what is loaded.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var (
		manifest *domain.IndexManifest
		err      error
	)
	if s.ports.Index != nil {
		manifest, err = s.ports.Index.Status(ctx)
	} else {
		manifest, err = s.ports.Retrieval.Manifest(ctx)
	}
	if errors.Is(err, domain.ErrIndexNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading index status: %w", err)
	}

	return jsonResource(req.Params.URI, manifestInfo{
		Generation:    manifest.Generation,
		Model:         manifest.Model,
		Dimension:     manifest.Dimension,
		ChunkCount:    manifest.ChunkCount,
		DocumentCount: manifest.DocumentCount,
		SkippedCount:  manifest.SkippedCount,
		ChunkSize:     manifest.ChunkSize,
		Overlap:       manifest.Overlap,
		BuiltAt:       manifest.BuiltAt,
	})
}

// handleHistoryResource returns recent build records.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	limit, ok := extractHistoryLimit(req.Params.URI)
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	records, err := s.ports.Index.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}

	infos := make([]buildInfo, len(records))
	for i, r := range records {
		infos[i] = buildInfo{
			ID:         r.ID,
			Generation: r.Generation,
			Status:     string(r.Status),
			Error:      r.Error,
			Model:      r.Model,
			ChunkCount: r.ChunkCount,
			StartedAt:  r.StartedAt,
			DurationMS: r.Duration().Milliseconds(),
		}
	}

	return jsonResource(req.Params.URI, infos)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractHistoryLimit extracts the limit from replyguard://index/history or
// replyguard://index/history/{limit}. Limits are clamped to maxHistoryLimit.
func extractHistoryLimit(uri string) (int, bool) {
	if uri == historyURI {
		return defaultHistoryLimit, true
	}

	const prefix = historyURI + "/"
	if !strings.HasPrefix(uri, prefix) {
		return 0, false
	}

	n, err := strconv.Atoi(strings.TrimPrefix(uri, prefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxHistoryLimit), true
}

package driving

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// RetrievalService answers nearest-neighbour queries against the current index.
type RetrievalService interface {
	// Query returns up to opts.K chunks ordered by ascending distance.
	Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.SearchResult, error)

	// Reload swaps in the currently published generation.
	Reload(ctx context.Context) error

	// Manifest returns the manifest of the loaded generation.
	Manifest(ctx context.Context) (*domain.IndexManifest, error)
}

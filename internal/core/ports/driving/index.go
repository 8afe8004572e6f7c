package driving

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// IndexService builds and inspects the retrieval index.
type IndexService interface {
	// Build indexes every eligible file in corpusDir and publishes a new generation.
	// An empty corpusDir uses the configured default.
	Build(ctx context.Context, corpusDir string) (*domain.IndexManifest, error)

	// Status returns the manifest of the current generation.
	Status(ctx context.Context) (*domain.IndexManifest, error)

	// History returns recent build records, newest first.
	History(ctx context.Context, limit int) ([]domain.BuildRecord, error)

	// Verify checks the stored embedding matrix against the manifest.
	Verify(ctx context.Context) error
}

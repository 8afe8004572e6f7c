package driven

import (
	"context"

	"github.com/custodia-labs/replyguard/internal/core/domain"
)

// IndexStore persists index generations.
// Publishing is atomic: readers see either the previous generation or the
// new one, never a partial write.
type IndexStore interface {
	// Publish writes the snapshot and vector index as a new generation
	// and makes it current.
	Publish(ctx context.Context, snapshot *domain.IndexSnapshot, index VectorIndex) error

	// Load reads the current generation's manifest, chunk table and vector index.
	// Embeddings are not loaded. Returns domain.ErrIndexNotFound if nothing is published.
	Load(ctx context.Context) (*domain.IndexSnapshot, VectorIndex, error)

	// Current returns the manifest of the current generation.
	Current(ctx context.Context) (*domain.IndexManifest, error)

	// ReadEmbeddings reads the raw embedding matrix of the current generation.
	ReadEmbeddings(ctx context.Context) ([][]float32, error)
}

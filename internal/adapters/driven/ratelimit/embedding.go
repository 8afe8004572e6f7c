package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService waits for a token before every remote call.
// A batch counts as a single request.
type EmbeddingService struct {
	inner   driven.EmbeddingService
	limiter *rate.Limiter
}

// WrapEmbedding returns inner unchanged when cfg disables pacing.
func WrapEmbedding(inner driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if !cfg.Enabled() {
		return inner
	}
	return &EmbeddingService{inner: inner, limiter: newLimiter(cfg)}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.Embed(ctx, text)
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return s.inner.EmbedBatch(ctx, texts)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.inner.Dimensions() }

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string { return s.inner.ModelName() }

// Ping is not paced.
func (s *EmbeddingService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close releases the wrapped service.
func (s *EmbeddingService) Close() error { return s.inner.Close() }

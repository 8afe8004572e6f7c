// Package openai provides an embedding service adapter using the OpenAI API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel = "text-embedding-3-small"

	// MaxBatchSize is the number of inputs sent per request.
	MaxBatchSize = 100
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API endpoint for compatible servers.
	BaseURL string

	// Model is the embedding model to use (default: text-embedding-3-small).
	Model string

	// Dimensions overrides the default dimension for the model.
	// Only text-embedding-3-* models accept it.
	Dimensions int
}

// EmbeddingService generates embeddings using the OpenAI SDK.
type EmbeddingService struct {
	client     openai.Client
	model      string
	dimensions int
	sendDims   bool
}

// NewEmbeddingService creates a new OpenAI embedding service.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrEmbeddingUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	dimensions := cfg.Dimensions
	sendDims := dimensions > 0 && supportsDimensions(cfg.Model)
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}

	return &EmbeddingService{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: dimensions,
		sendDims:   sendDims,
	}, nil
}

func supportsDimensions(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch splits texts into requests of at most MaxBatchSize inputs.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(texts))
		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d-%d: %w", start, end-1, err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(s.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if s.sendDims {
		params.Dimensions = openai.Int(int64(s.dimensions))
	}

	resp, err := s.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: got %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", idx)
		}
		if s.dimensions > 0 && len(data.Embedding) != s.dimensions {
			return nil, fmt.Errorf("%w: openai model %s returned %d, expected %d",
				domain.ErrDimensionMismatch, s.model, len(data.Embedding), s.dimensions)
		}
		vec := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vec[i] = float32(v)
		}
		out[idx] = vec
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: openai ping: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

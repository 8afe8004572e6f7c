// Package hashing provides a deterministic, network-free embedding service.
//
// Texts are tokenised into lower-cased words, stopwords are dropped, and each
// remaining token is hashed into one of a fixed number of buckets with a
// signed count. The resulting vector is L2-normalised, so texts sharing
// vocabulary land close together under Euclidean distance.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-v1"
	DefaultDimensions = domain.DefaultHashDimensions
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// EmbeddingService embeds text by feature hashing.
type EmbeddingService struct {
	dimensions int
	stopwords  map[string]struct{}
}

// NewEmbeddingService creates a hashing embedder. Non-positive dimensions
// fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		dimensions: dimensions,
		stopwords:  defaultStopwords(),
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.embed(text), nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = s.embed(text)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return DefaultModel
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) embed(text string) []float32 {
	acc := make([]float64, s.dimensions)
	for _, tok := range s.tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(s.dimensions))
		// The top bit picks a sign so unrelated tokens in one bucket tend to cancel.
		if sum>>63 == 1 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, s.dimensions)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (s *EmbeddingService) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, stop := s.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that",
		"these", "those", "from", "so", "into", "about", "can", "will", "just", "i", "my", "me",
		"you", "your", "we", "our", "do", "does",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

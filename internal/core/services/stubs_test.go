package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// stubEmbedder returns vectors from a lookup table, or a fixed vector.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
	batchLen int // when >0, EmbedBatch returns this many vectors
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return s.fallback, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := len(texts)
	if s.batchLen > 0 {
		n = s.batchLen
	}
	out := make([][]float32, n)
	for i := range out {
		text := ""
		if i < len(texts) {
			text = texts[i]
		}
		out[i], _ = s.Embed(ctx, text)
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int            { return len(s.fallback) }
func (s *stubEmbedder) ModelName() string          { return "stub-embed" }
func (s *stubEmbedder) Ping(context.Context) error { return nil }
func (s *stubEmbedder) Close() error               { return nil }

// stubVectorIndex returns canned hits.
type stubVectorIndex struct {
	dim   int
	n     int
	hits  []driven.VectorHit
	mu    sync.Mutex
	lastN int
}

func (s *stubVectorIndex) Add(context.Context, [][]float32) error { return nil }

func (s *stubVectorIndex) Search(_ context.Context, _ []float32, n int) ([]driven.VectorHit, error) {
	s.mu.Lock()
	s.lastN = n
	s.mu.Unlock()
	if n > len(s.hits) {
		return s.hits, nil
	}
	return s.hits[:n], nil
}

func (s *stubVectorIndex) requested() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastN
}

func (s *stubVectorIndex) Dimension() int                   { return s.dim }
func (s *stubVectorIndex) Len() int                         { return s.n }
func (s *stubVectorIndex) WriteTo(io.Writer) (int64, error) { return 0, nil }
func (s *stubVectorIndex) Close() error                     { return nil }

// stubIndexStore serves a fixed snapshot and counts loads.
type stubIndexStore struct {
	mu       sync.Mutex
	snapshot *domain.IndexSnapshot
	index    driven.VectorIndex
	loads    int
}

func (s *stubIndexStore) Publish(context.Context, *domain.IndexSnapshot, driven.VectorIndex) error {
	return errors.New("read-only")
}

func (s *stubIndexStore) Load(context.Context) (*domain.IndexSnapshot, driven.VectorIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.snapshot == nil {
		return nil, nil, domain.ErrIndexNotFound
	}
	return s.snapshot, s.index, nil
}

func (s *stubIndexStore) Current(context.Context) (*domain.IndexManifest, error) {
	if s.snapshot == nil {
		return nil, domain.ErrIndexNotFound
	}
	m := s.snapshot.Manifest
	return &m, nil
}

func (s *stubIndexStore) ReadEmbeddings(context.Context) ([][]float32, error) {
	return s.snapshot.Embeddings, nil
}

func (s *stubIndexStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

// scriptedLLM fails the first failures calls, then answers reply.
type scriptedLLM struct {
	mu       sync.Mutex
	failures int
	reply    string
	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return s.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: prompt}}, driven.ChatOptions{})
}

func (s *scriptedLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.messages = messages
	s.opts = opts
	if s.calls <= s.failures {
		return "", errors.New("upstream 503")
	}
	return s.reply, nil
}

func (s *scriptedLLM) ModelName() string          { return "scripted" }
func (s *scriptedLLM) Ping(context.Context) error { return nil }
func (s *scriptedLLM) Close() error               { return nil }

// stubPrompts serves fixed prompt texts.
type stubPrompts map[string]string

func (p stubPrompts) Load(name string) (string, error) {
	if v, ok := p[name]; ok {
		return v, nil
	}
	return "", domain.ErrNotFound
}

func (p stubPrompts) Reload() {}

// stubRetrieval records the last query.
type stubRetrieval struct {
	results []domain.SearchResult
	err     error
	query   string
	opts    domain.QueryOptions
}

func (s *stubRetrieval) Query(_ context.Context, text string, opts domain.QueryOptions) ([]domain.SearchResult, error) {
	s.query = text
	s.opts = opts
	return s.results, s.err
}

func (s *stubRetrieval) Reload(context.Context) error { return nil }

func (s *stubRetrieval) Manifest(context.Context) (*domain.IndexManifest, error) {
	return nil, domain.ErrIndexNotFound
}

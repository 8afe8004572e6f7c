package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// loadedIndex is one immutable generation held in memory.
type loadedIndex struct {
	manifest domain.IndexManifest
	chunks   []domain.Chunk
	index    driven.VectorIndex
}

// RetrievalService answers queries against the current index generation.
// The generation is loaded on first use and shared by all callers; Reload
// swaps it without disturbing queries already running.
type RetrievalService struct {
	store    driven.IndexStore
	embedder driven.EmbeddingService
	settings domain.RetrievalSettings

	loadMu  sync.Mutex
	current atomic.Pointer[loadedIndex]
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(store driven.IndexStore, embedder driven.EmbeddingService, settings domain.RetrievalSettings) *RetrievalService {
	if settings.K <= 0 {
		settings.K = domain.DefaultK
	}
	if settings.OverFetch <= 0 {
		settings.OverFetch = domain.DefaultOverFetch
	}
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		settings: settings,
	}
}

// Query returns up to opts.K chunks ordered by ascending distance.
// The vector index is asked for K*OverFetch candidates; filtered-out and
// out-of-range candidates are skipped, so fewer than K results is normal.
func (s *RetrievalService) Query(ctx context.Context, text string, opts domain.QueryOptions) ([]domain.SearchResult, error) {
	k := opts.K
	if k <= 0 {
		k = s.settings.K
	}

	loaded, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}

	query, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(query) != loaded.index.Dimension() {
		return nil, fmt.Errorf("%w: index %s has %d dimensions, embedder %s produced %d",
			domain.ErrDimensionMismatch, loaded.manifest.Generation, loaded.index.Dimension(),
			s.embedder.ModelName(), len(query))
	}

	hits, err := loaded.index.Search(ctx, query, k*s.settings.OverFetch)
	if err != nil {
		return nil, fmt.Errorf("search vectors: %w", err)
	}

	results := make([]domain.SearchResult, 0, k)
	for _, hit := range hits {
		if hit.Position < 0 || hit.Position >= len(loaded.chunks) {
			continue
		}
		chunk := loaded.chunks[hit.Position]
		if opts.Filter != nil && !safeMatch(opts.Filter, chunk.Metadata) {
			continue
		}
		results = append(results, domain.SearchResult{
			Text:     chunk.Text,
			Metadata: chunk.Metadata,
			Score:    hit.Distance,
		})
		if len(results) >= k {
			break
		}
	}

	logger.Debug("query returned %d of %d candidates (k=%d)", len(results), len(hits), k)
	return results, nil
}

// safeMatch runs filter, treating an error or panic as "does not match".
func safeMatch(filter domain.ChunkFilter, md domain.ChunkMetadata) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("filter panicked on %s#%d: %v", md.Source, md.ChunkIndex, r)
			ok = false
		}
	}()

	match, err := filter(md)
	if err != nil {
		logger.Warn("filter failed on %s#%d: %v", md.Source, md.ChunkIndex, err)
		return false
	}
	return match
}

// Warm loads the current generation if nothing is loaded yet.
func (s *RetrievalService) Warm(ctx context.Context) error {
	_, err := s.ensureLoaded(ctx)
	return err
}

// Reload swaps in the currently published generation. Queries already
// running keep the generation they started with.
func (s *RetrievalService) Reload(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	loaded, err := s.load(ctx)
	if err != nil {
		return err
	}
	s.current.Store(loaded)
	logger.Info("Loaded index generation %s (%d chunks)", loaded.manifest.Generation, len(loaded.chunks))
	return nil
}

// Manifest returns the manifest of the loaded generation.
func (s *RetrievalService) Manifest(ctx context.Context) (*domain.IndexManifest, error) {
	loaded, err := s.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	m := loaded.manifest
	return &m, nil
}

func (s *RetrievalService) ensureLoaded(ctx context.Context) (*loadedIndex, error) {
	if loaded := s.current.Load(); loaded != nil {
		return loaded, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if loaded := s.current.Load(); loaded != nil {
		return loaded, nil
	}

	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.current.Store(loaded)
	return loaded, nil
}

func (s *RetrievalService) load(ctx context.Context) (*loadedIndex, error) {
	snapshot, index, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if index.Len() != len(snapshot.Chunks) {
		_ = index.Close()
		return nil, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrIndexCorrupt, index.Len(), len(snapshot.Chunks))
	}
	return &loadedIndex{
		manifest: snapshot.Manifest,
		chunks:   snapshot.Chunks,
		index:    index,
	}, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// Redactor irreversibly removes PII from document text.
type Redactor interface {
	RedactDocument(text string) string
}

// IndexService turns a corpus directory into a published index generation.
type IndexService struct {
	extractors driven.ExtractorRegistry
	redactor   Redactor
	pipeline   driven.PostProcessorPipeline
	embedder   driven.EmbeddingService
	vectors    driven.VectorIndexFactory
	store      driven.IndexStore
	ledger     driven.BuildLedger
	settings   domain.IndexSettings
	now        func() time.Time
}

// IndexOption configures an IndexService.
type IndexOption func(*IndexService)

// WithLedger records every build attempt in ledger.
func WithLedger(ledger driven.BuildLedger) IndexOption {
	return func(s *IndexService) {
		s.ledger = ledger
	}
}

// WithClock overrides time.Now for build timestamps.
func WithClock(now func() time.Time) IndexOption {
	return func(s *IndexService) {
		s.now = now
	}
}

// NewIndexService creates a new index service.
func NewIndexService(
	extractors driven.ExtractorRegistry,
	redactor Redactor,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndexFactory,
	store driven.IndexStore,
	settings domain.IndexSettings,
	opts ...IndexOption,
) *IndexService {
	s := &IndexService{
		extractors: extractors,
		redactor:   redactor,
		pipeline:   pipeline,
		embedder:   embedder,
		vectors:    vectors,
		store:      store,
		settings:   settings,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build indexes every eligible file in corpusDir and publishes a new generation.
// Nothing is written unless at least one chunk is produced. A failed build
// leaves the previous generation current.
func (s *IndexService) Build(ctx context.Context, corpusDir string) (*domain.IndexManifest, error) {
	if err := s.settings.Validate(); err != nil {
		return nil, err
	}
	if corpusDir == "" {
		corpusDir = s.settings.CorpusDir
	}

	record := domain.BuildRecord{
		ID:         uuid.NewString(),
		Generation: uuid.NewString(),
		CorpusDir:  corpusDir,
		Model:      s.embedder.ModelName(),
		StartedAt:  s.now(),
	}

	manifest, err := s.build(ctx, corpusDir, &record)

	record.FinishedAt = s.now()
	if err != nil {
		record.Status = domain.BuildFailed
		record.Error = err.Error()
	} else {
		record.Status = domain.BuildSucceeded
	}
	s.recordBuild(ctx, record)

	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	logger.Info("Indexed %d chunks from %d documents (%d skipped) into generation %s",
		manifest.ChunkCount, manifest.DocumentCount, manifest.SkippedCount, manifest.Generation)
	return manifest, nil
}

func (s *IndexService) build(ctx context.Context, corpusDir string, record *domain.BuildRecord) (*domain.IndexManifest, error) {
	files, err := s.eligibleFiles(corpusDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("found %d eligible files in %s", len(files), corpusDir)

	var chunks []domain.Chunk
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		docChunks, err := s.chunkFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if docChunks == nil {
			record.SkippedCount++
			continue
		}
		record.DocumentCount++
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no text chunks were generated from %s", domain.ErrNothingToIndex, corpusDir)
	}
	record.ChunkCount = len(chunks)

	embeddings, err := s.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	dim := len(embeddings[0])
	record.Dimension = dim

	index, err := s.vectors.New(dim)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	defer index.Close()

	if err := index.Add(ctx, embeddings); err != nil {
		return nil, fmt.Errorf("add vectors: %w", err)
	}

	snapshot := &domain.IndexSnapshot{
		Manifest: domain.IndexManifest{
			Generation:    record.Generation,
			Model:         record.Model,
			Dimension:     dim,
			ChunkCount:    len(chunks),
			DocumentCount: record.DocumentCount,
			SkippedCount:  record.SkippedCount,
			ChunkSize:     s.settings.ChunkSize,
			Overlap:       s.settings.Overlap,
			BuiltAt:       s.now(),
		},
		Chunks:     chunks,
		Embeddings: embeddings,
	}

	if err := s.store.Publish(ctx, snapshot, index); err != nil {
		return nil, fmt.Errorf("publish index: %w", err)
	}

	manifest := snapshot.Manifest
	return &manifest, nil
}

// eligibleFiles lists regular files with a registered extractor, sorted by name.
func (s *IndexService) eligibleFiles(corpusDir string) ([]string, error) {
	entries, err := os.ReadDir(corpusDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: corpus directory %s does not exist", domain.ErrNothingToIndex, corpusDir)
		}
		return nil, fmt.Errorf("read corpus directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(corpusDir, e.Name())
		if _, ok := s.extractors.ForPath(path); ok {
			files = append(files, path)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no %s files in %s", domain.ErrNothingToIndex,
			strings.Join(s.extractors.SupportedExtensions(), "/"), corpusDir)
	}
	return files, nil
}

// chunkFile extracts, redacts and chunks one file. A nil result means the
// file had no usable text.
func (s *IndexService) chunkFile(ctx context.Context, path string) ([]domain.Chunk, error) {
	extractor, _ := s.extractors.ForPath(path)
	text := extractor.Extract(ctx, path)
	if strings.TrimSpace(text) == "" {
		logger.Debug("skipping %s: no extractable text", filepath.Base(path))
		return nil, nil
	}

	doc := &domain.Document{
		Name:    filepath.Base(path),
		Path:    path,
		Content: s.redactor.RedactDocument(text),
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("process %s: %w", doc.Name, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return chunks, nil
}

func (s *IndexService) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("%w: %d embeddings for %d chunks", domain.ErrIndexCorrupt, len(embeddings), len(chunks))
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrDimensionMismatch)
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(e), dim)
		}
	}
	return embeddings, nil
}

func (s *IndexService) recordBuild(ctx context.Context, record domain.BuildRecord) {
	if s.ledger == nil {
		return
	}
	// Recording must not be skipped because the build itself was cancelled.
	if err := s.ledger.Record(context.WithoutCancel(ctx), record); err != nil {
		logger.Warn("record build %s: %v", record.ID, err)
	}
}

// Status returns the manifest of the current generation.
func (s *IndexService) Status(ctx context.Context) (*domain.IndexManifest, error) {
	return s.store.Current(ctx)
}

// History returns recent build records, newest first.
func (s *IndexService) History(ctx context.Context, limit int) ([]domain.BuildRecord, error) {
	if s.ledger == nil {
		return nil, nil
	}
	return s.ledger.List(ctx, limit)
}

// Verify re-reads the stored embedding matrix and checks its shape against
// the manifest and the vector index.
func (s *IndexService) Verify(ctx context.Context) error {
	snapshot, index, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	defer index.Close()

	embeddings, err := s.store.ReadEmbeddings(ctx)
	if err != nil {
		return err
	}

	m := snapshot.Manifest
	if len(embeddings) != m.ChunkCount || index.Len() != m.ChunkCount || len(snapshot.Chunks) != m.ChunkCount {
		return fmt.Errorf("%w: manifest lists %d chunks, found %d embeddings, %d vectors, %d chunk rows",
			domain.ErrIndexCorrupt, m.ChunkCount, len(embeddings), index.Len(), len(snapshot.Chunks))
	}
	if index.Dimension() != m.Dimension {
		return fmt.Errorf("%w: manifest dimension %d, vector index %d", domain.ErrIndexCorrupt, m.Dimension, index.Dimension())
	}
	for i, e := range embeddings {
		if len(e) != m.Dimension {
			return fmt.Errorf("%w: embedding row %d has %d columns, expected %d",
				domain.ErrIndexCorrupt, i, len(e), m.Dimension)
		}
	}
	return nil
}

package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/filestore"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/extractors"
	"github.com/custodia-labs/replyguard/internal/postprocessors"
)

type indexFixture struct {
	corpus   string
	indexDir string
	store    *filestore.Store
	ledger   *memory.BuildLedger
	embedder driven.EmbeddingService
	service  *IndexService
}

func newIndexFixture(t *testing.T, settings domain.IndexSettings, embedder driven.EmbeddingService) *indexFixture {
	t.Helper()
	root := t.TempDir()
	f := &indexFixture{
		corpus:   filepath.Join(root, "docs"),
		indexDir: filepath.Join(root, "index"),
		ledger:   memory.NewBuildLedger(),
		embedder: embedder,
	}
	require.NoError(t, os.MkdirAll(f.corpus, 0o755))

	if embedder == nil {
		f.embedder = hashing.NewEmbeddingService(64)
	}
	f.store = filestore.New(f.indexDir, flat.Factory{})

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := registry.BuildPipeline(settings.Processors, map[string]map[string]any{
		"chunker": {"chunk_size": 300, "overlap": 50},
		"owner":   {"markers": settings.OwnerMarkers},
	})
	require.NoError(t, err)

	f.service = NewIndexService(
		extractors.NewDefaultRegistry(),
		newTestMaskingService(),
		pipeline,
		f.embedder,
		flat.Factory{},
		f.store,
		settings,
		WithLedger(f.ledger),
	)
	return f
}

func (f *indexFixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.corpus, name), []byte(content), 0o644))
}

func testIndexSettings() domain.IndexSettings {
	return domain.DefaultAppSettings().Index
}

func words(n int, prefix string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix
	}
	return strings.Join(parts, " ")
}

func TestIndexService_Build(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)
	f.write(t, "owner_42_notes.txt", "Alice loves oat milk lattes. Email alice@example.com or call 555 123 4567.")
	f.write(t, "menu.txt", "Hot chocolate, latte and iced latte are available all winter.")
	f.write(t, "blank.txt", "   \n\t ")
	f.write(t, "readme.md", "not indexed")

	manifest, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)

	assert.Equal(t, 2, manifest.ChunkCount)
	assert.Equal(t, 2, manifest.DocumentCount)
	assert.Equal(t, 1, manifest.SkippedCount)
	assert.Equal(t, 64, manifest.Dimension)
	assert.Equal(t, hashing.DefaultModel, manifest.Model)
	assert.NotEmpty(t, manifest.Generation)

	snapshot, index, err := f.store.Load(context.Background())
	require.NoError(t, err)
	defer index.Close()

	require.Len(t, snapshot.Chunks, 2)
	assert.Equal(t, "menu.txt", snapshot.Chunks[0].Metadata.Source)
	assert.Nil(t, snapshot.Chunks[0].Metadata.OwnerID)

	notes := snapshot.Chunks[1]
	assert.Equal(t, "owner_42_notes.txt", notes.Metadata.Source)
	assert.Equal(t, "42", notes.Metadata.Owner())
	assert.Contains(t, notes.Text, "<EMAIL_MASK>")
	assert.Contains(t, notes.Text, "<PHONE_MASK>")
	assert.NotContains(t, notes.Text, "alice@example.com")

	history, err := f.service.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.BuildSucceeded, history[0].Status)
	assert.Equal(t, manifest.Generation, history[0].Generation)
	assert.Equal(t, 2, history[0].ChunkCount)
}

func TestIndexService_Build_ChunkCoverage(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)
	f.write(t, "long.txt", words(1000, "coffee"))

	manifest, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)

	assert.Equal(t, 4, manifest.ChunkCount)
	snapshot, index, err := f.store.Load(context.Background())
	require.NoError(t, err)
	defer index.Close()
	for i, c := range snapshot.Chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
	}
	assert.Len(t, strings.Fields(snapshot.Chunks[3].Text), 250)
}

func TestIndexService_Build_DefaultCorpusDir(t *testing.T) {
	settings := testIndexSettings()
	f := newIndexFixture(t, settings, nil)
	f.service.settings.CorpusDir = f.corpus
	f.write(t, "menu.txt", "latte")

	manifest, err := f.service.Build(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, manifest.ChunkCount)
}

func TestIndexService_Build_EmptyCorpusWritesNothing(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{name: "no files"},
		{name: "no eligible files", files: map[string]string{"notes.md": "hello"}},
		{name: "only blank files", files: map[string]string{"a.txt": " ", "b.txt": "\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIndexFixture(t, testIndexSettings(), nil)
			for name, content := range tt.files {
				f.write(t, name, content)
			}

			_, err := f.service.Build(context.Background(), f.corpus)

			assert.ErrorIs(t, err, domain.ErrNothingToIndex)
			_, statErr := os.Stat(f.indexDir)
			assert.True(t, os.IsNotExist(statErr), "index directory must not be created")

			history, err := f.service.History(context.Background(), 1)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, domain.BuildFailed, history[0].Status)
			assert.NotEmpty(t, history[0].Error)
		})
	}
}

func TestIndexService_Build_MissingCorpus(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)

	_, err := f.service.Build(context.Background(), filepath.Join(f.corpus, "missing"))

	assert.ErrorIs(t, err, domain.ErrNothingToIndex)
}

func TestIndexService_Build_InvalidChunkingFailsFast(t *testing.T) {
	settings := testIndexSettings()
	settings.Overlap = settings.ChunkSize
	f := newIndexFixture(t, settings, nil)

	_, err := f.service.Build(context.Background(), "/does/not/exist")

	assert.ErrorIs(t, err, domain.ErrInvalidChunking)
	history, _ := f.service.History(context.Background(), 1)
	assert.Empty(t, history)
}

func TestIndexService_Build_DimensionMismatch(t *testing.T) {
	embedder := &stubEmbedder{
		vectors:  map[string][]float32{"short": {1}},
		fallback: []float32{1, 2},
	}
	f := newIndexFixture(t, testIndexSettings(), embedder)
	f.write(t, "a.txt", "short")
	f.write(t, "b.txt", "longer text")

	_, err := f.service.Build(context.Background(), f.corpus)

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndexService_Build_EmbeddingCountMismatch(t *testing.T) {
	embedder := &stubEmbedder{fallback: []float32{1, 2}, batchLen: 1}
	f := newIndexFixture(t, testIndexSettings(), embedder)
	f.write(t, "a.txt", "one")
	f.write(t, "b.txt", "two")

	_, err := f.service.Build(context.Background(), f.corpus)

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestIndexService_FailedBuildKeepsPreviousGeneration(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)
	f.write(t, "menu.txt", "latte")
	first, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.corpus, "menu.txt")))
	_, err = f.service.Build(context.Background(), f.corpus)
	require.ErrorIs(t, err, domain.ErrNothingToIndex)

	current, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Generation, current.Generation)
}

func TestIndexService_IdempotentBuild(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)
	f.write(t, "owner_42_notes.txt", "alice enjoys oat milk lattes in the morning")
	f.write(t, "menu.txt", "hot chocolate and latte on the winter menu")
	f.write(t, "offers.txt", "use code HOT10 for ten percent off hot drinks")

	query := func() []domain.SearchResult {
		retrieval := NewRetrievalService(f.store, f.embedder, domain.RetrievalSettings{})
		results, err := retrieval.Query(context.Background(), "hot drinks offer", domain.QueryOptions{K: 3})
		require.NoError(t, err)
		return results
	}

	_, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)
	first := query()

	_, err = f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)
	second := query()

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	assert.Equal(t, sources(first), sources(second))
	for i := range first {
		assert.Equal(t, first[i].Metadata.ChunkIndex, second[i].Metadata.ChunkIndex)
		assert.InDelta(t, first[i].Score, second[i].Score, 1e-6, "score of result %d", i)
	}
}

func TestIndexService_FilteredTopK(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)
	f.write(t, "owner_42_notes.txt", "oat milk latte")
	f.write(t, "cust_7_notes.txt", "oat milk latte please")
	f.write(t, "menu.txt", "oat milk latte available")

	_, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)

	retrieval := NewRetrievalService(f.store, f.embedder, domain.RetrievalSettings{})
	results, err := retrieval.Query(context.Background(), "oat milk latte", domain.QueryOptions{
		K:      3,
		Filter: domain.OwnerFilter("7"),
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "cust_7_notes.txt", results[0].Metadata.Source)
}

func TestIndexService_StatusAndVerify(t *testing.T) {
	f := newIndexFixture(t, testIndexSettings(), nil)

	_, err := f.service.Status(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
	assert.ErrorIs(t, f.service.Verify(context.Background()), domain.ErrIndexNotFound)

	f.write(t, "menu.txt", "latte")
	built, err := f.service.Build(context.Background(), f.corpus)
	require.NoError(t, err)

	status, err := f.service.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, built.Generation, status.Generation)
	assert.Equal(t, 300, status.ChunkSize)
	assert.Equal(t, 50, status.Overlap)

	assert.NoError(t, f.service.Verify(context.Background()))
}

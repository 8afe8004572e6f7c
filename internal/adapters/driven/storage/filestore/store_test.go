package filestore

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/replyguard/internal/core/domain"
)

func snapshot(t *testing.T, builtAt time.Time) (*domain.IndexSnapshot, *flat.Index) {
	t.Helper()
	emb := [][]float32{{1, 0}, {0, 1}, {0.5, 0.5}}
	idx, err := flat.New(2)
	require.NoError(t, err)
	require.NoError(t, idx.Add(context.Background(), emb))

	return &domain.IndexSnapshot{
		Manifest: domain.IndexManifest{
			Model:         "hashing-v1",
			DocumentCount: 2,
			ChunkSize:     300,
			Overlap:       50,
			BuiltAt:       builtAt,
		},
		Chunks: []domain.Chunk{
			{Text: "first", Metadata: domain.ChunkMetadata{Source: "a.txt", ChunkIndex: 0}},
			{Text: "second", Metadata: domain.ChunkMetadata{Source: "a.txt", ChunkIndex: 1}},
			{Text: "third", Metadata: domain.ChunkMetadata{Source: "owner_7_b.txt", OwnerID: domain.StringPtr("7")}},
		},
		Embeddings: emb,
	}, idx
}

func TestLoad_NothingPublished(t *testing.T) {
	store := New(t.TempDir(), flat.Factory{})

	_, _, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	_, err = store.Current(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)

	_, err = store.ReadEmbeddings(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotFound)
}

func TestPublishLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, flat.Factory{})
	snap, idx := snapshot(t, time.Time{})
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx, snap, idx))
	require.NotEmpty(t, snap.Manifest.Generation)

	loaded, vi, err := store.Load(ctx)
	require.NoError(t, err)
	defer vi.Close()

	assert.Equal(t, snap.Chunks, loaded.Chunks)
	assert.Nil(t, loaded.Embeddings)
	assert.Equal(t, 3, vi.Len())
	assert.Equal(t, 2, loaded.Manifest.Dimension)
	assert.Equal(t, 3, loaded.Manifest.ChunkCount)
	assert.Equal(t, snap.Manifest.Generation, loaded.Manifest.Generation)

	emb, err := store.ReadEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Embeddings, emb)

	for _, name := range []string{VectorsFile, DocsFile, EmbeddingsFile, ManifestFile} {
		_, err := os.Stat(filepath.Join(dir, GenerationsDir, snap.Manifest.Generation, name))
		assert.NoError(t, err, name)
	}
}

func TestPublish_DocsJSONShape(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, flat.Factory{})
	snap, idx := snapshot(t, time.Time{})
	require.NoError(t, store.Publish(context.Background(), snap, idx))

	data, err := os.ReadFile(filepath.Join(dir, GenerationsDir, snap.Manifest.Generation, DocsFile))
	require.NoError(t, err)

	assert.Contains(t, string(data), `"texts"`)
	assert.Contains(t, string(data), `"chunk_index": 1`)
	assert.Contains(t, string(data), `"owner_id": "7"`)
	assert.Contains(t, string(data), `"owner_id": null`)
}

func TestPublish_RejectsMismatchedSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, flat.Factory{})
	snap, idx := snapshot(t, time.Time{})
	snap.Embeddings = snap.Embeddings[:2]

	err := store.Publish(context.Background(), snap, idx)

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	_, statErr := os.Stat(filepath.Join(dir, CurrentFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPublish_SwitchesAndPrunes(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, flat.Factory{}, WithKeep(2))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var gens []string
	for i := 0; i < 3; i++ {
		snap, idx := snapshot(t, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, store.Publish(ctx, snap, idx))
		gens = append(gens, snap.Manifest.Generation)
	}

	current, err := store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, gens[2], current.Generation)

	entries, err := os.ReadDir(filepath.Join(dir, GenerationsDir))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{gens[1], gens[2]}, names)
}

func TestLoad_CorruptArtifacts(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, flat.Factory{})
	snap, idx := snapshot(t, time.Time{})
	require.NoError(t, store.Publish(context.Background(), snap, idx))
	genDir := filepath.Join(dir, GenerationsDir, snap.Manifest.Generation)

	require.NoError(t, os.WriteFile(filepath.Join(genDir, DocsFile),
		[]byte(`{"texts":["only one"],"metadata":[{"source":"a.txt","chunk_index":0}]}`), 0600))

	_, _, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestCurrent_RejectsPathInPointer(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, CurrentFile), []byte("../etc\n"), 0600))

	_, err := New(dir, flat.Factory{}).Current(context.Background())

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestNPY_RoundTripAndHeader(t *testing.T) {
	rows := [][]float32{{1, 2, 3}, {-1, 0.5, 0}}
	var buf bytes.Buffer

	require.NoError(t, writeNPY(&buf, rows, 3))

	data := buf.Bytes()
	assert.True(t, bytes.HasPrefix(data, []byte("\x93NUMPY\x01\x00")))
	headerLen := int(data[8]) | int(data[9])<<8
	assert.Equal(t, 0, (10+headerLen)%npyAlign)
	assert.True(t, strings.Contains(string(data[10:10+headerLen]), "'shape': (2, 3)"))

	got, err := readNPY(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestNPY_RejectsOtherDtypes(t *testing.T) {
	header := "{'descr': '<f8', 'fortran_order': False, 'shape': (1, 1), }\n"
	data := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), 0)
	data = append(data, header...)

	_, err := readNPY(bytes.NewReader(data))

	assert.Error(t, err)
}

func npyWithHeader(header string) []byte {
	data := append([]byte("\x93NUMPY\x01\x00"), byte(len(header)), byte(len(header)>>8))
	return append(data, header...)
}

func TestNPY_RejectsImplausibleShapes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"huge shape", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (9999999999, 9999999999), }\n")},
		{"too many elements", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (4294967296, 1024), }\n")},
		{"zero width", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (3, 0), }\n")},
		{"rows without data", npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (1000000, 384), }\n")},
		{"oversized v2 header", []byte("\x93NUMPY\x02\x00\xff\xff\xff\xff")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows [][]float32
			var err error
			assert.NotPanics(t, func() { rows, err = readNPY(bytes.NewReader(tt.data)) })
			assert.Error(t, err)
			assert.Nil(t, rows)
		})
	}
}

func TestLoad_CorruptHeaders(t *testing.T) {
	huge := npyWithHeader("{'descr': '<f4', 'fortran_order': False, 'shape': (9999999999, 9999999999), }\n")
	var vectorsHeader bytes.Buffer
	require.NoError(t, binary.Write(&vectorsHeader, binary.LittleEndian, struct {
		Magic   [4]byte
		Version uint32
		Dim     uint32
		Count   uint64
	}{[4]byte{'R', 'G', 'V', 'I'}, 1, 0xFFFFFFFF, 0x7FFFFFFF}))

	dir := t.TempDir()
	store := New(dir, flat.Factory{})
	snap, idx := snapshot(t, time.Time{})
	require.NoError(t, store.Publish(context.Background(), snap, idx))
	genDir := filepath.Join(dir, GenerationsDir, snap.Manifest.Generation)

	require.NoError(t, os.WriteFile(filepath.Join(genDir, EmbeddingsFile), huge, 0600))
	_, err := store.ReadEmbeddings(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)

	require.NoError(t, os.WriteFile(filepath.Join(genDir, VectorsFile), vectorsHeader.Bytes(), 0600))
	_, _, err = store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

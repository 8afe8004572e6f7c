package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Artifact file names.
const (
	CurrentFile    = "CURRENT"
	GenerationsDir = "generations"
	VectorsFile    = "vectors.idx"
	DocsFile       = "docs.json"
	EmbeddingsFile = "embeddings.npy"
	ManifestFile   = "manifest.json"
)

const tmpPrefix = ".tmp-"

// Store publishes and loads index generations under a directory.
type Store struct {
	dir     string
	factory driven.VectorIndexFactory
	keep    int
}

// Option configures a Store.
type Option func(*Store)

// WithKeep sets how many generations survive pruning, the current one included.
// Values below 1 are treated as 1.
func WithKeep(n int) Option {
	return func(s *Store) {
		s.keep = max(n, 1)
	}
}

// New creates a store rooted at dir. The directory is created on first publish.
func New(dir string, factory driven.VectorIndexFactory, opts ...Option) *Store {
	s := &Store{
		dir:     dir,
		factory: factory,
		keep:    domain.DefaultKeepGenerations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

type docsJSON struct {
	Texts    []string       `json:"texts"`
	Metadata []metadataJSON `json:"metadata"`
}

type metadataJSON struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	OwnerID    *string `json:"owner_id"`
}

type manifestJSON struct {
	Generation    string    `json:"generation"`
	Model         string    `json:"model"`
	Dimension     int       `json:"dimension"`
	ChunkCount    int       `json:"chunk_count"`
	DocumentCount int       `json:"document_count"`
	SkippedCount  int       `json:"skipped_count"`
	ChunkSize     int       `json:"chunk_size"`
	Overlap       int       `json:"overlap"`
	BuiltAt       time.Time `json:"built_at"`
}

func toManifestJSON(m domain.IndexManifest) manifestJSON {
	return manifestJSON(m)
}

func (m manifestJSON) domain() domain.IndexManifest {
	return domain.IndexManifest(m)
}

// Publish writes a new generation and makes it current. The snapshot's
// generation id is assigned here when empty.
func (s *Store) Publish(ctx context.Context, snapshot *domain.IndexSnapshot, index driven.VectorIndex) error {
	if snapshot == nil || index == nil {
		return fmt.Errorf("%w: nil snapshot or index", domain.ErrInvalidInput)
	}
	n := len(snapshot.Chunks)
	if len(snapshot.Embeddings) != n || index.Len() != n {
		return fmt.Errorf("%w: %d chunks, %d embeddings, %d vectors",
			domain.ErrIndexCorrupt, n, len(snapshot.Embeddings), index.Len())
	}

	if snapshot.Manifest.Generation == "" {
		snapshot.Manifest.Generation = uuid.NewString()
	}
	if snapshot.Manifest.BuiltAt.IsZero() {
		snapshot.Manifest.BuiltAt = time.Now().UTC()
	}
	snapshot.Manifest.ChunkCount = n
	snapshot.Manifest.Dimension = index.Dimension()
	gen := snapshot.Manifest.Generation

	gensDir := filepath.Join(s.dir, GenerationsDir)
	if err := os.MkdirAll(gensDir, 0700); err != nil {
		return fmt.Errorf("create generations directory: %w", err)
	}

	tmp, err := os.MkdirTemp(gensDir, tmpPrefix+gen+"-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	published := false
	defer func() {
		if !published {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := s.writeArtifacts(ctx, tmp, snapshot, index); err != nil {
		return err
	}

	final := filepath.Join(gensDir, gen)
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("move generation into place: %w", err)
	}
	published = true

	if err := writeFileAtomic(filepath.Join(s.dir, CurrentFile), []byte(gen+"\n")); err != nil {
		return fmt.Errorf("switch current generation: %w", err)
	}
	logger.Debug("published index generation %s (%d chunks)", gen, n)

	if err := s.prune(gen); err != nil {
		logger.Warn("prune old generations: %v", err)
	}
	return nil
}

func (s *Store) writeArtifacts(ctx context.Context, dir string, snapshot *domain.IndexSnapshot, index driven.VectorIndex) error {
	f, err := os.Create(filepath.Join(dir, VectorsFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", VectorsFile, err)
	}
	if _, err := index.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", VectorsFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", VectorsFile, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	docs := docsJSON{
		Texts:    make([]string, len(snapshot.Chunks)),
		Metadata: make([]metadataJSON, len(snapshot.Chunks)),
	}
	for i, c := range snapshot.Chunks {
		docs.Texts[i] = c.Text
		docs.Metadata[i] = metadataJSON{
			Source:     c.Metadata.Source,
			ChunkIndex: c.Metadata.ChunkIndex,
			OwnerID:    c.Metadata.OwnerID,
		}
	}
	if err := writeJSON(filepath.Join(dir, DocsFile), docs); err != nil {
		return err
	}

	f, err = os.Create(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", EmbeddingsFile, err)
	}
	if err := writeNPY(f, snapshot.Embeddings, index.Dimension()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", EmbeddingsFile, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", EmbeddingsFile, err)
	}

	return writeJSON(filepath.Join(dir, ManifestFile), toManifestJSON(snapshot.Manifest))
}

// Load reads the current generation. Embeddings are left nil.
func (s *Store) Load(ctx context.Context) (*domain.IndexSnapshot, driven.VectorIndex, error) {
	manifest, dir, err := s.current()
	if err != nil {
		return nil, nil, err
	}

	var docs docsJSON
	if err := readJSON(filepath.Join(dir, DocsFile), &docs); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	if len(docs.Texts) != len(docs.Metadata) {
		return nil, nil, fmt.Errorf("%w: %d texts but %d metadata rows",
			domain.ErrIndexCorrupt, len(docs.Texts), len(docs.Metadata))
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(filepath.Join(dir, VectorsFile))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	index, err := s.factory.Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", VectorsFile, err)
	}
	if index.Len() != len(docs.Texts) || index.Dimension() != manifest.Dimension {
		index.Close()
		return nil, nil, fmt.Errorf("%w: index has %d vectors of dim %d, table has %d rows, manifest dim %d",
			domain.ErrIndexCorrupt, index.Len(), index.Dimension(), len(docs.Texts), manifest.Dimension)
	}

	chunks := make([]domain.Chunk, len(docs.Texts))
	for i, text := range docs.Texts {
		m := docs.Metadata[i]
		chunks[i] = domain.Chunk{
			Text: text,
			Metadata: domain.ChunkMetadata{
				Source:     m.Source,
				ChunkIndex: m.ChunkIndex,
				OwnerID:    m.OwnerID,
			},
		}
	}

	return &domain.IndexSnapshot{Manifest: *manifest, Chunks: chunks}, index, nil
}

// Current returns the manifest of the current generation.
func (s *Store) Current(_ context.Context) (*domain.IndexManifest, error) {
	manifest, _, err := s.current()
	return manifest, err
}

// ReadEmbeddings reads the current generation's embedding matrix.
func (s *Store) ReadEmbeddings(_ context.Context) ([][]float32, error) {
	_, dir, err := s.current()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, EmbeddingsFile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	defer f.Close()

	rows, err := readNPY(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexCorrupt, EmbeddingsFile, err)
	}
	return rows, nil
}

func (s *Store) current() (*domain.IndexManifest, string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, CurrentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", domain.ErrIndexNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", CurrentFile, err)
	}

	gen := strings.TrimSpace(string(raw))
	if gen == "" || strings.ContainsAny(gen, `/\`) || gen == "." || gen == ".." {
		return nil, "", fmt.Errorf("%w: bad current generation %q", domain.ErrIndexCorrupt, gen)
	}
	dir := filepath.Join(s.dir, GenerationsDir, gen)

	var m manifestJSON
	if err := readJSON(filepath.Join(dir, ManifestFile), &m); err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrIndexCorrupt, err)
	}
	manifest := m.domain()
	return &manifest, dir, nil
}

// prune removes all but the newest s.keep generations, never touching current.
func (s *Store) prune(current string) error {
	gensDir := filepath.Join(s.dir, GenerationsDir)
	entries, err := os.ReadDir(gensDir)
	if err != nil {
		return err
	}

	type gen struct {
		name    string
		builtAt time.Time
	}
	var gens []gen
	for _, e := range entries {
		if !e.IsDir() || e.Name() == current || strings.HasPrefix(e.Name(), tmpPrefix) {
			continue
		}
		var m manifestJSON
		if err := readJSON(filepath.Join(gensDir, e.Name(), ManifestFile), &m); err != nil {
			continue
		}
		gens = append(gens, gen{name: e.Name(), builtAt: m.BuiltAt})
	}

	sort.Slice(gens, func(i, j int) bool {
		return gens[i].builtAt.After(gens[j].builtAt)
	})

	// The current generation takes one of the kept slots.
	for i, g := range gens {
		if i < s.keep-1 {
			continue
		}
		if err := os.RemoveAll(filepath.Join(gensDir, g.name)); err != nil {
			return err
		}
		logger.Debug("pruned index generation %s", g.name)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

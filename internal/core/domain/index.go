package domain

import "time"

// IndexManifest describes one published index generation.
type IndexManifest struct {
	// Generation identifies the artifact set.
	Generation string

	// Model is the embedding model that produced the vectors.
	Model string

	// Dimension is the vector length.
	Dimension int

	// ChunkCount is the number of indexed chunks.
	ChunkCount int

	// DocumentCount is the number of documents that produced chunks.
	DocumentCount int

	// SkippedCount is the number of eligible files with no extractable text.
	SkippedCount int

	// ChunkSize and Overlap are the chunking parameters in words.
	ChunkSize int
	Overlap   int

	// BuiltAt is when the generation was published.
	BuiltAt time.Time
}

// IndexSnapshot is the chunk table and embedding matrix of one generation.
// Chunks and Embeddings are positional: Embeddings[i] belongs to Chunks[i].
type IndexSnapshot struct {
	Manifest   IndexManifest
	Chunks     []Chunk
	Embeddings [][]float32
}

// BuildStatus is the outcome of a build attempt.
type BuildStatus string

// Build outcomes.
const (
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// BuildRecord is one row of the build ledger.
type BuildRecord struct {
	ID            string
	Generation    string
	CorpusDir     string
	Model         string
	Dimension     int
	DocumentCount int
	ChunkCount    int
	SkippedCount  int
	Status        BuildStatus
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration returns how long the build ran.
func (r BuildRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

package driven

import (
	"context"
	"io"
)

// VectorIndex provides exact nearest-neighbour search over positional vectors.
// Vectors are addressed by insertion order; position i is the i-th vector added.
// The index is safe for concurrent Search once building is complete.
type VectorIndex interface {
	// Add appends vectors. Every vector must have Dimension() entries.
	Add(ctx context.Context, vectors [][]float32) error

	// Search returns up to n hits ordered by ascending distance.
	Search(ctx context.Context, query []float32, n int) ([]VectorHit, error)

	// Dimension returns the vector length.
	Dimension() int

	// Len returns the number of stored vectors.
	Len() int

	// WriteTo serialises the index.
	WriteTo(w io.Writer) (int64, error)

	// Close releases resources.
	Close() error
}

// VectorIndexFactory creates empty indexes and reads serialised ones.
type VectorIndexFactory interface {
	// New returns an empty index for vectors of the given dimension.
	New(dimension int) (VectorIndex, error)

	// Read deserialises an index written by VectorIndex.WriteTo.
	Read(r io.Reader) (VectorIndex, error)
}

// VectorHit represents a nearest-neighbour result.
type VectorHit struct {
	// Position is the insertion index of the matched vector.
	Position int

	// Distance is the squared Euclidean distance to the query. Lower is closer.
	Distance float64
}

package flat

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure Index and Factory implement the interfaces.
var (
	_ driven.VectorIndex        = (*Index)(nil)
	_ driven.VectorIndexFactory = Factory{}
)

const version uint32 = 1

var magic = [4]byte{'R', 'G', 'V', 'I'}

const (
	// maxElements bounds dimension*count read from an index file.
	maxElements = 1 << 31
	readChunk   = 1 << 16
)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("flat: index is closed")

// Index stores vectors contiguously and searches them by brute force.
type Index struct {
	mu        sync.RWMutex
	data      []float32
	count     int
	dimension int
	closed    bool
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Add appends vectors in order. Either all vectors are added or none.
func (idx *Index) Add(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("%w: vector %d has %d entries, index has %d",
				domain.ErrDimensionMismatch, i, len(v), idx.dimension)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return ErrClosed
	}
	for _, v := range vectors {
		idx.data = append(idx.data, v...)
	}
	idx.count += len(vectors)
	return nil
}

// Search returns up to n hits ordered by ascending distance, ties broken by position.
func (idx *Index) Search(ctx context.Context, query []float32, n int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d entries, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, ErrClosed
	}
	if n <= 0 || idx.count == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, idx.count)
	for pos := 0; pos < idx.count; pos++ {
		if pos%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := idx.data[pos*idx.dimension : (pos+1)*idx.dimension]
		hits[pos] = driven.VectorHit{Position: pos, Distance: squaredL2(query, row)}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if n < len(hits) {
		hits = hits[:n]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// Dimension returns the vector length.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// WriteTo serialises the index.
func (idx *Index) WriteTo(w io.Writer) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return 0, ErrClosed
	}

	cw := &countingWriter{w: bufio.NewWriter(w)}
	header := struct {
		Magic   [4]byte
		Version uint32
		Dim     uint32
		Count   uint64
	}{magic, version, uint32(idx.dimension), uint64(idx.count)}

	if err := binary.Write(cw, binary.LittleEndian, header); err != nil {
		return cw.n, fmt.Errorf("write header: %w", err)
	}
	buf := make([]byte, 4)
	for _, v := range idx.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := cw.Write(buf); err != nil {
			return cw.n, fmt.Errorf("write vectors: %w", err)
		}
	}
	if err := cw.w.Flush(); err != nil {
		return cw.n, fmt.Errorf("flush: %w", err)
	}
	return cw.n, nil
}

// Close releases the stored vectors.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.data = nil
	return nil
}

// Read deserialises an index written by WriteTo.
func Read(r io.Reader) (*Index, error) {
	var header struct {
		Magic   [4]byte
		Version uint32
		Dim     uint32
		Count   uint64
	}
	br := bufio.NewReader(r)
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrIndexCorrupt, err)
	}
	if header.Magic != magic {
		return nil, fmt.Errorf("%w: bad magic %q", domain.ErrIndexCorrupt, header.Magic[:])
	}
	if header.Version != version {
		return nil, fmt.Errorf("%w: unsupported version %d", domain.ErrIndexCorrupt, header.Version)
	}
	if header.Dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension", domain.ErrIndexCorrupt)
	}
	if header.Count > math.MaxInt32 {
		return nil, fmt.Errorf("%w: implausible vector count %d", domain.ErrIndexCorrupt, header.Count)
	}
	total := uint64(header.Dim) * header.Count
	if total > maxElements {
		return nil, fmt.Errorf("%w: %d vectors of dimension %d exceed the index size limit",
			domain.ErrIndexCorrupt, header.Count, header.Dim)
	}

	dim, count := int(header.Dim), int(header.Count)
	// The header is untrusted: grow while reading instead of sizing from it.
	data := make([]float32, 0, min(int(total), readChunk))
	buf := make([]byte, 4)
	for i := 0; i < int(total); i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated vectors after %d of %d values: %v",
				domain.ErrIndexCorrupt, i, total, err)
		}
		data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	}

	return &Index{data: data, count: count, dimension: dim}, nil
}

// Factory creates flat indexes.
type Factory struct{}

// New returns an empty index.
func (Factory) New(dimension int) (driven.VectorIndex, error) {
	return New(dimension)
}

// Read deserialises an index.
func (Factory) Read(r io.Reader) (driven.VectorIndex, error) {
	return Read(r)
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

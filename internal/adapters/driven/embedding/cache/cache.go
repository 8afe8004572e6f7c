// Package cache wraps an EmbeddingService with a persistent bbolt vector cache.
//
// Keys are the SHA-256 of the model name, the vector width and the text, so
// switching models or dimensions never returns stale vectors. Values are
// little-endian float32 arrays.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const bucketName = "embeddings"

// EmbeddingService serves cached vectors and forwards misses to the wrapped service.
type EmbeddingService struct {
	inner driven.EmbeddingService
	db    *bolt.DB
}

// New opens (or creates) the cache database at path.
func New(inner driven.EmbeddingService, path string) (*EmbeddingService, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %q: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}

	return &EmbeddingService{inner: inner, db: db}, nil
}

func (s *EmbeddingService) key(text string) []byte {
	h := sha256.New()
	var dims [4]byte
	binary.LittleEndian.PutUint32(dims[:], uint32(s.inner.Dimensions()))
	h.Write([]byte(s.inner.ModelName()))
	h.Write([]byte{0})
	h.Write(dims[:])
	h.Write([]byte(text))
	return h.Sum(nil)
}

// Embed returns the cached vector for text or computes and stores it.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch looks every text up first and embeds only the misses, in one call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missing []int

	dims := s.inner.Dimensions()
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		for i, text := range texts {
			v := b.Get(s.key(text))
			// Entries of the wrong width are misses and get overwritten.
			if v != nil && (dims <= 0 || len(v) == 4*dims) {
				out[i] = decode(v)
			} else {
				missing = append(missing, i)
			}
		}
		return nil
	})
	if err != nil {
		logger.Warn("embedding cache read failed: %v", err)
		missing = missing[:0]
		for i := range texts {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return out, nil
	}
	logger.Debug("embedding cache: %d hits, %d misses", len(texts)-len(missing), len(missing))

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	fresh, err := s.inner.EmbedBatch(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts",
			domain.ErrIndexCorrupt, s.inner.ModelName(), len(fresh), len(pending))
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		for j, i := range missing {
			if err := b.Put(s.key(texts[i]), encode(fresh[j])); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		logger.Warn("embedding cache write failed: %v", err)
	}

	for j, i := range missing {
		out[i] = fresh[j]
	}
	return out, nil
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.inner.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *EmbeddingService) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the cache database and the wrapped service.
func (s *EmbeddingService) Close() error {
	dbErr := s.db.Close()
	if err := s.inner.Close(); err != nil {
		return err
	}
	return dbErr
}

func encode(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/replyguard/internal/core/domain"
)

type countingEmbedder struct {
	model string
	dims  int
	drop  int
	calls [][]string
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts)-min(c.drop, len(texts)))
	for i := range out {
		vec := make([]float32, c.Dimensions())
		vec[0] = float32(len(texts[i]))
		for j := 1; j < len(vec); j++ {
			vec[j] = 0.5
		}
		out[i] = vec
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int {
	if c.dims == 0 {
		return 2
	}
	return c.dims
}

func (c *countingEmbedder) ModelName() string          { return c.model }
func (c *countingEmbedder) Ping(context.Context) error { return nil }
func (c *countingEmbedder) Close() error               { return nil }

func TestEmbedBatch_CachesVectors(t *testing.T) {
	inner := &countingEmbedder{model: "m1"}
	svc, err := New(inner, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer svc.Close()
	ctx := context.Background()

	first, err := svc.EmbedBatch(ctx, []string{"one", "three"})
	require.NoError(t, err)

	second, err := svc.EmbedBatch(ctx, []string{"three", "fourth", "one"})
	require.NoError(t, err)

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, []float32{6, 0.5}, second[1])
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"fourth"}, inner.calls[1])
}

func TestEmbed_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	inner := &countingEmbedder{model: "m1"}
	svc, err := New(inner, path)
	require.NoError(t, err)
	_, err = svc.Embed(ctx, "latte")
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	inner2 := &countingEmbedder{model: "m1"}
	svc2, err := New(inner2, path)
	require.NoError(t, err)
	defer svc2.Close()

	vec, err := svc2.Embed(ctx, "latte")
	require.NoError(t, err)

	assert.Equal(t, []float32{5, 0.5}, vec)
	assert.Empty(t, inner2.calls)
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	svc, err := New(&countingEmbedder{model: "m1"}, path)
	require.NoError(t, err)
	_, _ = svc.Embed(ctx, "latte")
	require.NoError(t, svc.Close())

	other := &countingEmbedder{model: "m2"}
	svc2, err := New(other, path)
	require.NoError(t, err)
	defer svc2.Close()

	_, err = svc2.Embed(ctx, "latte")
	require.NoError(t, err)
	assert.Len(t, other.calls, 1)
}

func TestEmbed_KeyIncludesDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	wide, err := New(hashing.NewEmbeddingService(384), path)
	require.NoError(t, err)
	vec, err := wide.Embed(ctx, "hot chocolate offer")
	require.NoError(t, err)
	require.Len(t, vec, 384)
	require.NoError(t, wide.Close())

	narrow, err := New(hashing.NewEmbeddingService(16), path)
	require.NoError(t, err)
	defer narrow.Close()

	vecs, err := narrow.EmbedBatch(ctx, []string{"hot chocolate offer", "latte"})
	require.NoError(t, err)

	for _, v := range vecs {
		assert.Len(t, v, narrow.Dimensions())
	}
}

func TestEmbed_WrongWidthEntryIsMiss(t *testing.T) {
	inner := &countingEmbedder{model: "m1"}
	svc, err := New(inner, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer svc.Close()

	require.NoError(t, svc.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put(svc.key("latte"), encode([]float32{1, 2, 3}))
	}))

	vec, err := svc.Embed(context.Background(), "latte")
	require.NoError(t, err)

	assert.Equal(t, []float32{5, 0.5}, vec)
	assert.Len(t, inner.calls, 1)
}

func TestEmbedBatch_ShortInnerBatch(t *testing.T) {
	inner := &countingEmbedder{model: "m1", drop: 1}
	svc, err := New(inner, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer svc.Close()

	var out [][]float32
	assert.NotPanics(t, func() {
		out, err = svc.EmbedBatch(context.Background(), []string{"one", "two"})
	})

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Nil(t, out)
}

func TestEmbed_PropagatesInnerError(t *testing.T) {
	inner := &countingEmbedder{model: "m", err: errors.New("down")}
	svc, err := New(inner, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Embed(context.Background(), "x")

	assert.EqualError(t, err, "down")
}

func TestEncodeDecode(t *testing.T) {
	vec := []float32{1.5, -2, 0, 3.25}

	assert.Equal(t, vec, decode(encode(vec)))
}

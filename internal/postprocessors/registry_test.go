package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// registryMockProcessor is a simple mock for testing registry functionality.
type registryMockProcessor struct {
	name string
}

func (m *registryMockProcessor) Name() string { return m.name }
func (m *registryMockProcessor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	return chunks, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(_ map[string]any) (driven.PostProcessor, error) {
		return &registryMockProcessor{name: "test"}, nil
	})

	assert.True(t, r.Has("test"))
	assert.False(t, r.Has("other"))
}

func TestRegistry_Build_PassesConfig(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(cfg map[string]any) (driven.PostProcessor, error) {
		name := "default"
		if n, ok := cfg["name"].(string); ok {
			name = n
		}
		return &registryMockProcessor{name: name}, nil
	})

	proc, err := r.Build("test", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())
}

func TestRegistry_Build_Unknown(t *testing.T) {
	_, err := NewRegistry().Build("missing", nil)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedType))
}

func TestRegistry_Names_Sorted(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	assert.Equal(t, []string{"chunker", "owner"}, r.Names())
}

func TestRegistry_BuildPipeline_InvalidChunking(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := r.BuildPipeline([]string{"chunker"}, map[string]map[string]any{
		"chunker": {"chunk_size": int64(50), "overlap": int64(50)},
	})
	require.NoError(t, err)

	_, err = p.Process(context.Background(), &domain.Document{Name: "a.txt", Content: "text"})
	assert.True(t, errors.Is(err, domain.ErrInvalidChunking))
}

func TestRegistry_BuildPipeline_DefaultsWithoutConfig(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	p, err := r.BuildPipeline([]string{"chunker", "owner"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
}

func TestGetIntFromConfig(t *testing.T) {
	cfg := map[string]any{"a": 1, "b": int64(2), "c": float64(3), "d": "4"}
	assert.Equal(t, 1, getIntFromConfig(cfg, "a"))
	assert.Equal(t, 2, getIntFromConfig(cfg, "b"))
	assert.Equal(t, 3, getIntFromConfig(cfg, "c"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "d"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "missing"))
}

func TestGetStringsFromConfig(t *testing.T) {
	assert.Equal(t, []string{"a"}, getStringsFromConfig(map[string]any{"k": []string{"a"}}, "k"))
	assert.Equal(t, []string{"a", "b"}, getStringsFromConfig(map[string]any{"k": []any{"a", 1, "b"}}, "k"))
	assert.Nil(t, getStringsFromConfig(nil, "k"))
}

package ai

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/llm/offline"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/replyguard/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantErr  error
		wantName string
	}{
		{
			name:     "nil settings uses hashing",
			settings: nil,
			wantName: hashing.DefaultModel,
		},
		{
			name:     "hashing provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Dimensions: 64},
			wantName: hashing.DefaultModel,
		},
		{
			name:     "ollama provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "nomic-embed-text"},
			wantName: "nomic-embed-text",
		},
		{
			name:     "openai provider",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-small"},
			wantName: "text-embedding-3-small",
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
		{
			name:     "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"},
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
		{
			name:     "unknown provider",
			settings: &domain.EmbeddingSettings{Provider: "faiss"},
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantName, svc.ModelName())
		})
	}
}

func TestCreateEmbeddingService_Decorators(t *testing.T) {
	t.Run("hashing is never paced", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:          domain.AIProviderHashing,
			RequestsPerSecond: 1,
		})
		require.NoError(t, err)

		assert.IsType(t, &hashing.EmbeddingService{}, svc)
	})

	t.Run("remote provider is paced", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:          domain.AIProviderOllama,
			RequestsPerSecond: 2,
		})
		require.NoError(t, err)
		defer svc.Close()

		assert.IsType(t, &ratelimit.EmbeddingService{}, svc)
	})

	t.Run("cache path wraps outermost", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:  domain.AIProviderHashing,
			CachePath: filepath.Join(t.TempDir(), "cache.db"),
		})
		require.NoError(t, err)
		defer svc.Close()

		assert.IsType(t, &cache.EmbeddingService{}, svc)
	})
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name      string
		settings  *domain.LLMSettings
		wantErr   error
		wantModel string
	}{
		{
			name:      "nil settings uses offline",
			settings:  nil,
			wantModel: offline.ModelName,
		},
		{
			name:      "offline provider",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOffline},
			wantModel: offline.ModelName,
		},
		{
			name:      "ollama provider",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantModel: "llama3.2",
		},
		{
			name:      "openai provider",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k"},
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "anthropic provider",
			settings:  &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k", Model: "claude-3-5-sonnet-latest"},
			wantModel: "claude-3-5-sonnet-latest",
		},
		{
			name:     "anthropic without key",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic},
			wantErr:  domain.ErrLLMUnavailable,
		},
		{
			name:     "unconfigured",
			settings: &domain.LLMSettings{},
			wantErr:  domain.ErrLLMUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.wantModel, svc.ModelName())
		})
	}
}

func TestInit_DefaultsWorkOffline(t *testing.T) {
	settings := domain.DefaultAppSettings()

	result, err := Init(&settings, true)
	require.NoError(t, err)
	defer result.Close()

	assert.Equal(t, hashing.DefaultModel, result.EmbeddingService.ModelName())
	assert.Equal(t, offline.ModelName, result.LLMService.ModelName())
	assert.False(t, result.FellBack)
	assert.Empty(t, result.Warnings)
}

func TestInit_UnreachableLLMFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOllama
	settings.LLM.BaseURL = srv.URL

	result, err := Init(&settings, true)
	require.NoError(t, err)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, offline.ModelName, result.LLMService.ModelName())
}

func TestInit_UnconfiguredLLMWithoutPing(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM.Provider = domain.AIProviderOpenAI

	result, err := Init(&settings, false)
	require.NoError(t, err)
	defer result.Close()

	assert.True(t, result.FellBack)
	assert.Equal(t, offline.ModelName, result.LLMService.ModelName())
}

func TestInit_UnreachableEmbedderFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.AIProviderOllama
	settings.Embedding.BaseURL = srv.URL

	_, err := Init(&settings, false)

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

// Package ai builds embedding and LLM adapters from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/cache"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/replyguard/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/replyguard/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/llm/offline"
	ollamallm "github.com/custodia-labs/replyguard/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/replyguard/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if the LLM fell back to offline replies.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		_ = r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		_ = r.LLMService.Close()
	}
}

// Init creates both services. The embedder must be usable; an LLM that is
// unconfigured or unreachable is replaced by the offline generator.
// Set checkLLM to false to skip the LLM ping for commands that never generate.
func Init(settings *domain.AppSettings, checkLLM bool) (*InitResult, error) {
	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}

	result := &InitResult{EmbeddingService: embedder}

	if !checkLLM {
		llm, err := CreateLLMService(&settings.LLM)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
			llm = offline.NewLLMService()
			result.FellBack = true
		}
		result.LLMService = llm
		return result, nil
	}

	llm, err := CreateAndValidateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("%v; using offline replies", err)
		result.Warnings = append(result.Warnings, err.Error())
		llm = offline.NewLLMService()
		result.FellBack = true
	}
	result.LLMService = llm
	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w. Run 'replyguard config set embedding.provider hashing' to work offline", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := CreateLLMService(settings)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service described by settings.
// Nil settings select the built-in hashing embedder. Remote providers are
// paced, and every provider is cached when a cache path is set.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return hashing.NewEmbeddingService(0), nil
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrEmbeddingUnavailable, settings.Provider)
	}

	var (
		svc driven.EmbeddingService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderHashing:
		svc = hashing.NewEmbeddingService(settings.Dimensions)
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)
	case domain.AIProviderOpenAI:
		svc, err = createOpenAIEmbedding(settings)
	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	if !settings.Provider.IsLocal() {
		svc = ratelimit.WrapEmbedding(svc, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond})
	}

	if settings.CachePath != "" {
		cached, err := cache.New(svc, settings.CachePath)
		if err != nil {
			_ = svc.Close()
			return nil, err
		}
		svc = cached
	}
	return svc, nil
}

// CreateLLMService creates the LLM service described by settings.
// Nil settings select the offline generator.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return offline.NewLLMService(), nil
	}
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrLLMUnavailable, settings.Provider)
	}

	var (
		svc driven.LLMService
		err error
	)
	switch settings.Provider {
	case domain.AIProviderOffline:
		return offline.NewLLMService(), nil
	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderOpenAI:
		svc, err = openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	case domain.AIProviderAnthropic:
		svc, err = anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
	if err != nil {
		return nil, err
	}

	return ratelimit.WrapLLM(svc, ratelimit.Config{RequestsPerSecond: settings.RequestsPerSecond}), nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := settings.Dimensions
	if dimensions == 0 {
		dimensions = domain.EmbeddingDimensions()[settings.Model]
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

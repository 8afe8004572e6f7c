package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService waits for a token before every generation request.
type LLMService struct {
	inner   driven.LLMService
	limiter *rate.Limiter
}

// WrapLLM returns inner unchanged when cfg disables pacing.
func WrapLLM(inner driven.LLMService, cfg Config) driven.LLMService {
	if !cfg.Enabled() {
		return inner
	}
	return &LLMService{inner: inner, limiter: newLimiter(cfg)}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Generate(ctx, prompt, opts)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return s.inner.Chat(ctx, messages, opts)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string { return s.inner.ModelName() }

// Ping is not paced.
func (s *LLMService) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

// Close releases the wrapped service.
func (s *LLMService) Close() error { return s.inner.Close() }

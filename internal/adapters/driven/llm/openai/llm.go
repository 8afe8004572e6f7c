// Package openai provides an LLM service adapter using the OpenAI SDK.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API endpoint for compatible servers.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o-mini).
	Model string
}

// LLMService generates replies with OpenAI chat completions.
// The SDK's own retries are disabled; callers own the retry policy.
type LLMService struct {
	client openai.Client
	model  string
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrLLMUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &LLMService{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
	}, nil
}

// Generate sends prompt as a single user message. Stop words are not forwarded.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	return s.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: prompt}}, driven.ChatOptions{
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(s.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}

	completion, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai: no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

func toParams(messages []driven.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// ModelName returns the name of the model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the API key by listing models.
func (s *LLMService) Ping(ctx context.Context) error {
	if _, err := s.client.Models.List(ctx); err != nil {
		return fmt.Errorf("%w: openai ping: %v", domain.ErrLLMUnavailable, err)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

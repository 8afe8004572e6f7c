// Package offline provides a deterministic LLM stand-in that needs no network.
package offline

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// ModelName is reported for every offline reply.
const ModelName = "offline-demo"

// snippetRunes is how much of the prompt is echoed back.
const snippetRunes = 400

// LLMService echoes a prefix of the prompt in a fixed sentence.
// The same prompt always produces the same reply.
type LLMService struct{}

// NewLLMService creates an offline LLM service.
func NewLLMService() *LLMService {
	return &LLMService{}
}

// Generate returns the demo reply for prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Reply(prompt), nil
}

// Chat replies to the last user message. System messages are ignored.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return Reply(messages[i].Content), nil
		}
	}
	return "", fmt.Errorf("%w: no user message", domain.ErrInvalidInput)
}

// Reply formats the offline demo text for prompt.
func Reply(prompt string) string {
	snippet := prompt
	if r := []rune(prompt); len(r) > snippetRunes {
		snippet = string(r[:snippetRunes])
	}
	snippet = strings.ReplaceAll(snippet, "\n", " ")
	return fmt.Sprintf("[LLM offline demo] Based on your message (masked): %s... (enable OPENAI_API_KEY to use a real model)", snippet)
}

// IsOffline reports that replies are canned rather than generated.
func (s *LLMService) IsOffline() bool {
	return true
}

// ModelName returns the name of the model being used.
func (s *LLMService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *LLMService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

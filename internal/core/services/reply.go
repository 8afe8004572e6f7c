package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/core/ports/driving"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure ReplyService implements the interface.
var _ driving.ReplyService = (*ReplyService)(nil)

// maxQueryPreferences caps how many customer preferences extend the query.
const maxQueryPreferences = 3

// offliner is implemented by generators that return canned replies.
type offliner interface {
	IsOffline() bool
}

// ReplyService composes display-safe replies. Only masked text ever
// reaches retrieval, the prompt and the generator.
type ReplyService struct {
	masking   driving.MaskingService
	retrieval driving.RetrievalService
	directory driven.CustomerDirectory
	llm       driven.LLMService
	prompts   driven.PromptStore
	settings  domain.LLMSettings
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewReplyService creates a new reply service.
func NewReplyService(
	masking driving.MaskingService,
	retrieval driving.RetrievalService,
	directory driven.CustomerDirectory,
	llm driven.LLMService,
	prompts driven.PromptStore,
	settings domain.LLMSettings,
) *ReplyService {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = domain.DefaultMaxAttempts
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = domain.DefaultMaxTokens
	}
	return &ReplyService{
		masking:   masking,
		retrieval: retrieval,
		directory: directory,
		llm:       llm,
		prompts:   prompts,
		settings:  settings,
		sleep:     sleepContext,
	}
}

// Reply masks the message, retrieves context, generates and unmasks.
func (s *ReplyService) Reply(ctx context.Context, req domain.ReplyRequest) (*domain.ReplyResponse, error) {
	masked, mapping := s.masking.Mask(req.UserText)

	customer := s.lookupCustomer(ctx, req.UserToken)
	store := s.nearestStore(ctx)

	query := masked
	var filter domain.ChunkFilter
	if customer != nil {
		if prefs := customer.TopPreferences(maxQueryPreferences); len(prefs) > 0 {
			query += " " + strings.Join(prefs, " ")
		}
		filter = domain.OwnerFilter(customer.ID)
	}

	docs, err := s.retrieval.Query(ctx, query, domain.QueryOptions{K: domain.DefaultK, Filter: filter})
	if err != nil {
		logger.Warn("retrieval failed, replying without documents: %v", err)
		docs = nil
	}

	prompt := BuildPrompt(
		s.loadPrompt(driven.PromptReplyPreamble),
		s.loadPrompt(driven.PromptReplyInstruction),
		PromptInput{Masked: masked, Customer: customer, Store: store, Documents: docs},
	)
	logger.Debug("reply prompt built: %d tokens masked, %d documents, customer known: %t",
		mapping.Len(), len(docs), customer != nil)

	generated, err := s.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.ChunkMetadata, len(docs))
	for i, d := range docs {
		sources[i] = d.Metadata
	}

	offline := false
	if o, ok := s.llm.(offliner); ok {
		offline = o.IsOffline()
	}
	return &domain.ReplyResponse{
		Reply:   s.masking.UnmaskForDisplay(generated, mapping),
		Sources: sources,
		Offline: offline,
	}, nil
}

func (s *ReplyService) lookupCustomer(ctx context.Context, token string) *domain.Customer {
	if token == "" || s.directory == nil {
		return nil
	}
	customer, err := s.directory.CustomerByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("customer lookup failed: %v", err)
		}
		return nil
	}
	return customer
}

func (s *ReplyService) nearestStore(ctx context.Context) domain.Store {
	if s.directory == nil {
		return domain.DefaultStore()
	}
	store, err := s.directory.NearestStore(ctx)
	if err != nil {
		logger.Warn("store lookup failed, using default store: %v", err)
		return domain.DefaultStore()
	}
	return store
}

func (s *ReplyService) loadPrompt(name string) string {
	text, err := s.prompts.Load(name)
	if err != nil {
		logger.Warn("load prompt %s: %v", name, err)
		return ""
	}
	return strings.TrimSpace(text)
}

// generate calls the LLM up to MaxAttempts times, waiting 1s, 3s, 5s, ...
// between attempts.
func (s *ReplyService) generate(ctx context.Context, prompt string) (string, error) {
	messages := []driven.ChatMessage{
		{Role: "system", Content: s.loadPrompt(driven.PromptReplySystem)},
		{Role: "user", Content: prompt},
	}
	opts := driven.ChatOptions{
		MaxTokens:   s.settings.MaxTokens,
		Temperature: s.settings.Temperature,
	}

	var lastErr error
	for attempt := 0; attempt < s.settings.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1+2*(attempt-1)) * time.Second
			logger.Debug("generation attempt %d failed, retrying in %s", attempt, wait)
			if err := s.sleep(ctx, wait); err != nil {
				return "", err
			}
		}

		reply, err := s.llm.Chat(ctx, messages, opts)
		if err == nil {
			return strings.TrimSpace(reply), nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
		logger.Warn("generation attempt %d/%d with %s failed: %v",
			attempt+1, s.settings.MaxAttempts, s.llm.ModelName(), err)
	}

	return "", fmt.Errorf("%w after %d attempts: %w", domain.ErrGenerationFailed, s.settings.MaxAttempts, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

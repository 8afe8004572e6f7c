package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/adapters/driven/llm/offline"
	"github.com/custodia-labs/replyguard/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

var testPrompts = stubPrompts{
	driven.PromptReplySystem:      "You are a helpful barista.\n",
	driven.PromptReplyPreamble:    "  Context follows.  ",
	driven.PromptReplyInstruction: "Reply in one sentence.\n",
}

func testCustomer() domain.Customer {
	return domain.Customer{
		ID:          "42",
		Token:       "tok-42",
		Name:        "Vishal",
		Preferences: []string{"Latte", "Mocha", "Tea", "Scone"},
		History:     []domain.Purchase{{Item: "Latte", Count: 2, LastOrder: "2024-11-02"}},
	}
}

type replyFixture struct {
	llm       driven.LLMService
	retrieval *stubRetrieval
	waits     []time.Duration
	service   *ReplyService
}

func newReplyFixture(t *testing.T, llm driven.LLMService, settings domain.LLMSettings) *replyFixture {
	t.Helper()
	f := &replyFixture{
		llm: llm,
		retrieval: &stubRetrieval{results: []domain.SearchResult{
			{Text: "Lattes are on offer.", Metadata: domain.ChunkMetadata{Source: "offers.txt"}},
		}},
	}
	directory := memory.NewCustomerDirectory([]domain.Customer{testCustomer()}, nil)
	f.service = NewReplyService(newTestMaskingService(), f.retrieval, directory, llm, testPrompts, settings)
	f.service.sleep = func(_ context.Context, d time.Duration) error {
		f.waits = append(f.waits, d)
		return nil
	}
	return f
}

func TestReplyService_Reply(t *testing.T) {
	llm := &scriptedLLM{reply: "  Hi! We'll send the code to <EMAIL_1>.  "}
	f := newReplyFixture(t, llm, domain.LLMSettings{Temperature: 0.5})

	resp, err := f.service.Reply(context.Background(), domain.ReplyRequest{
		UserText:  "I'm cold, email me at vishal.mehta@gmail.com",
		UserToken: "tok-42",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi! We'll send the code to v**********a@g***l.c*m.", resp.Reply)
	assert.NotContains(t, resp.Reply, "vishal.mehta@gmail.com")
	assert.False(t, resp.Offline)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "offers.txt", resp.Sources[0].Source)

	assert.Equal(t, "I'm cold, email me at <EMAIL_1> Latte Mocha Tea", f.retrieval.query)
	assert.Equal(t, domain.DefaultK, f.retrieval.opts.K)
	require.NotNil(t, f.retrieval.opts.Filter)
	own, _ := f.retrieval.opts.Filter(domain.ChunkMetadata{OwnerID: ptr("42")})
	other, _ := f.retrieval.opts.Filter(domain.ChunkMetadata{OwnerID: ptr("7")})
	assert.True(t, own)
	assert.False(t, other)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, "system", llm.messages[0].Role)
	assert.Equal(t, "You are a helpful barista.", llm.messages[0].Content)
	assert.Equal(t, "user", llm.messages[1].Role)

	want := BuildPrompt("Context follows.", "Reply in one sentence.", PromptInput{
		Masked:    "I'm cold, email me at <EMAIL_1>",
		Customer:  func() *domain.Customer { c := testCustomer(); return &c }(),
		Store:     domain.DefaultStore(),
		Documents: f.retrieval.results,
	})
	assert.Equal(t, want, llm.messages[1].Content)
	assert.NotContains(t, llm.messages[1].Content, "vishal.mehta@gmail.com")

	assert.Equal(t, domain.DefaultMaxTokens, llm.opts.MaxTokens)
	assert.InDelta(t, 0.5, llm.opts.Temperature, 1e-9)
	assert.Empty(t, f.waits)
}

func TestReplyService_Reply_UnknownCustomer(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "no token", token: ""},
		{name: "unknown token", token: "nobody"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{reply: "ok"}
			f := newReplyFixture(t, llm, domain.LLMSettings{})

			_, err := f.service.Reply(context.Background(), domain.ReplyRequest{UserText: "hot drinks?", UserToken: tt.token})
			require.NoError(t, err)

			assert.Equal(t, "hot drinks?", f.retrieval.query)
			assert.Nil(t, f.retrieval.opts.Filter)
			assert.NotContains(t, llm.messages[1].Content, "Customer name:")
		})
	}
}

func TestReplyService_Reply_NoDirectory(t *testing.T) {
	llm := &scriptedLLM{reply: "ok"}
	retrieval := &stubRetrieval{}
	service := NewReplyService(newTestMaskingService(), retrieval, nil, llm, testPrompts, domain.LLMSettings{})

	resp, err := service.Reply(context.Background(), domain.ReplyRequest{UserText: "latte?", UserToken: "tok-42"})
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Reply)
	assert.Nil(t, retrieval.opts.Filter)
	assert.Contains(t, llm.messages[1].Content, domain.DefaultStore().Name)
}

func TestReplyService_Reply_RetriesWithBackoff(t *testing.T) {
	llm := &scriptedLLM{failures: 2, reply: "third time lucky"}
	f := newReplyFixture(t, llm, domain.LLMSettings{MaxAttempts: 3})

	resp, err := f.service.Reply(context.Background(), domain.ReplyRequest{UserText: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "third time lucky", resp.Reply)
	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, f.waits)
}

func TestReplyService_Reply_GenerationFailed(t *testing.T) {
	llm := &scriptedLLM{failures: 10}
	f := newReplyFixture(t, llm, domain.LLMSettings{MaxAttempts: 3})

	resp, err := f.service.Reply(context.Background(), domain.ReplyRequest{UserText: "hi"})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.ErrorContains(t, err, "after 3 attempts")
	assert.ErrorContains(t, err, "upstream 503")
	assert.Equal(t, 3, llm.calls)
	assert.Len(t, f.waits, 2)
}

func TestReplyService_Reply_CancelledDuringBackoff(t *testing.T) {
	llm := &scriptedLLM{failures: 10}
	f := newReplyFixture(t, llm, domain.LLMSettings{MaxAttempts: 3})
	f.service.sleep = sleepContext

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Reply(ctx, domain.ReplyRequest{UserText: "hi"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, llm.calls)
}

func TestReplyService_Reply_RetrievalFailureStillReplies(t *testing.T) {
	llm := &scriptedLLM{reply: "no docs needed"}
	f := newReplyFixture(t, llm, domain.LLMSettings{})
	f.retrieval.err = domain.ErrIndexNotFound
	f.retrieval.results = nil

	resp, err := f.service.Reply(context.Background(), domain.ReplyRequest{UserText: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "no docs needed", resp.Reply)
	assert.Empty(t, resp.Sources)
	assert.Contains(t, llm.messages[1].Content, "Relevant documents:\nNone")
}

func TestReplyService_Reply_Offline(t *testing.T) {
	f := newReplyFixture(t, offline.NewLLMService(), domain.LLMSettings{})

	resp, err := f.service.Reply(context.Background(), domain.ReplyRequest{UserText: "call me on 555 123 4567"})
	require.NoError(t, err)

	assert.True(t, resp.Offline)
	assert.Contains(t, resp.Reply, "[LLM offline demo]")
	assert.NotContains(t, resp.Reply, "555 123 4567")
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sleepContext(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}

func ptr(s string) *string { return &s }

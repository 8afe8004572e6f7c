package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replyguard/internal/core/domain"
	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(Config{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChat_SendsSystemSeparately(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Try a "},{"type":"text","text":"hot chocolate."}]}`))
	}))
	defer srv.Close()

	svc, err := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	reply, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "I'm cold"},
	}, driven.ChatOptions{MaxTokens: 64, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Try a hot chocolate.", reply)
	assert.Equal(t, "be brief", got.System)
	assert.Equal(t, 64, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestGenerate_DefaultsMaxTokens(t *testing.T) {
	var got messagesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()
	svc, _ := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})

	_, err := svc.Generate(context.Background(), "hi", driven.GenerateOptions{})

	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	assert.Nil(t, got.Temperature)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()
	svc, _ := NewLLMService(Config{APIKey: "k", BaseURL: srv.URL})

	_, err := svc.Generate(context.Background(), "hi", driven.GenerateOptions{})

	assert.ErrorContains(t, err, "slow down")
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	good, _ := NewLLMService(Config{APIKey: "good", BaseURL: srv.URL})
	bad, _ := NewLLMService(Config{APIKey: "bad", BaseURL: srv.URL})

	assert.NoError(t, good.Ping(context.Background()))
	assert.ErrorIs(t, bad.Ping(context.Background()), domain.ErrLLMUnavailable)
	assert.Equal(t, DefaultModel, good.ModelName())
}

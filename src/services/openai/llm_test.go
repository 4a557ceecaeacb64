package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/square-key-labs/strawgo-lisa/src/services"
	"github.com/square-key-labs/strawgo-lisa/src/voiceerr"
)

func TestCompleteChatWithoutKeyIsUnavailable(t *testing.T) {
	s := NewLLMService(LLMConfig{})
	_, err := s.CompleteChat(context.Background(), nil, services.ChatParams{})
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderUnavailable))
}

func TestCompleteChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"intent\":\"GREETING\"}"}}]}`))
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "m"})
	text, err := s.CompleteChat(context.Background(),
		[]services.ChatMessage{{Role: services.RoleUser, Content: "hi"}},
		services.ChatParams{System: "sys", JSON: true, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"GREETING"}`, text)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "hi", got.Messages[1].Content)
	assert.Equal(t, "json_object", got.ResponseFormat["type"])
	assert.Equal(t, "m", got.Model)
}

func TestCompleteChatHTTPErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s := NewLLMService(LLMConfig{APIKey: "k", BaseURL: srv.URL})
	_, err := s.CompleteChat(context.Background(), nil, services.ChatParams{})
	assert.True(t, voiceerr.Is(err, voiceerr.KindProviderError))
	assert.Contains(t, err.Error(), "503")
}

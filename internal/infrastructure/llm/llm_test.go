package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/config"
	"github.com/WALTAHHH/Always-Scheming-Terminal-sub000/internal/ports"
)

var sampleRequest = ports.ClassifyRequest{
	Title:   "Krafton acquires Unknown Worlds",
	Excerpt: "The PUBG maker buys the Subnautica studio.",
}

func TestChatGPTClassifierReturnsMessageContent(t *testing.T) {
	var received struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"companies\":[\"Krafton\"],\"themes\":[]}"}}]}`))
	}))
	defer server.Close()

	c := NewChatGPTClassifier(config.ProviderConfig{Endpoint: server.URL, Model: "gpt-test", APIKey: "sk-test"}, time.Second)
	raw, err := c.Classify(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.JSONEq(t, `{"companies":["Krafton"],"themes":[]}`, raw)

	assert.Equal(t, "gpt-test", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, "system", received.Messages[0].Role)
	assert.Contains(t, received.Messages[1].Content, "Title: Krafton acquires Unknown Worlds")
	assert.Contains(t, received.Messages[1].Content, "Excerpt: The PUBG maker")
}

func TestChatGPTClassifierErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewChatGPTClassifier(config.ProviderConfig{Endpoint: server.URL, Model: "m", APIKey: "k"}, time.Second)
	_, err := c.Classify(context.Background(), sampleRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = NewChatGPTClassifier(config.ProviderConfig{}, 0).Classify(context.Background(), sampleRequest)
	assert.Error(t, err)
}

func TestChatGPTClassifierNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := NewChatGPTClassifier(config.ProviderConfig{Endpoint: server.URL, Model: "m", APIKey: "k"}, time.Second)
	_, err := c.Classify(context.Background(), sampleRequest)
	assert.Error(t, err)
}

func TestAnthropicClassifierReturnsText(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": "```json\n{\"companies\":[\"Krafton\"],\"themes\":[\"ugc\"]}\n```"},
			},
			"model":       "claude-haiku-4-5",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer server.Close()

	c := NewAnthropicClassifier(config.ProviderConfig{APIKey: "test-key", Endpoint: server.URL}, time.Second)
	raw, err := c.Classify(context.Background(), sampleRequest)
	require.NoError(t, err)
	assert.Contains(t, raw, `"Krafton"`)

	assert.Equal(t, "claude-haiku-4-5", body["model"])
	assert.EqualValues(t, defaultMaxTokens, body["max_tokens"])
}

func TestAnthropicClassifierSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`))
	}))
	defer server.Close()

	c := NewAnthropicClassifier(config.ProviderConfig{APIKey: "k", Endpoint: server.URL}, time.Second, option.WithMaxRetries(0))
	_, err := c.Classify(context.Background(), sampleRequest)
	assert.Error(t, err)
}

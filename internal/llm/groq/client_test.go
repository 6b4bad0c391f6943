package groq

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medidoc/medidoc-server/internal/common"
	"github.com/medidoc/medidoc-server/internal/llm"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestCompleteSendsOpenAIShapedRequest(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(completionBody("  {\"category\":\"Other\"}  ")))
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: ts.URL, Model: "llama-3.1-8b-instant"}, nil)
	out, err := c.Complete(context.Background(), []llm.Message{
		{Role: "system", Content: "extract"},
		{Role: "user", Content: "text"},
	}, llm.ChatOptions{Temperature: 0.1, MaxTokens: 300, TopP: 1})

	require.NoError(t, err)
	assert.Equal(t, `{"category":"Other"}`, out)

	assert.Equal(t, "llama-3.1-8b-instant", captured["model"])
	assert.InDelta(t, 0.1, captured["temperature"].(float64), 1e-6)
	assert.EqualValues(t, 300, captured["max_tokens"])
	assert.Equal(t, false, captured["stream"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
}

func TestCompleteNon2xxIsServiceUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"rate limit"}}`, http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL}, nil)
	_, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "x"}}, llm.ChatOptions{})
	require.Error(t, err)
	assert.Equal(t, common.KindServiceUnavailable, common.KindOf(err))
}

func TestCompleteEmptyChoicesIsServiceUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: ts.URL}, nil)
	_, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "x"}}, llm.ChatOptions{})
	require.Error(t, err)
	assert.Equal(t, common.KindServiceUnavailable, common.KindOf(err))
}

func TestCompleteUnreachableHostIsServiceUnavailable(t *testing.T) {
	c := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := c.Complete(context.Background(), []llm.Message{{Role: "user", Content: "x"}}, llm.ChatOptions{})
	require.Error(t, err)
	assert.Equal(t, common.KindServiceUnavailable, common.KindOf(err))
}

package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIClientComplete(t *testing.T) {
	var gotAuth string
	var gotBody chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "  今日もよく頑張ったね。  "}}],
			"usage": {"total_tokens": 42}
		}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, 5*time.Second)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Model:        "gpt-4o",
		SystemPrompt: "prompt",
		MaxTokens:    200,
		Temperature:  0.8,
	})

	require.NoError(t, err)
	assert.Equal(t, "今日もよく頑張ったね。", resp.Content)
	assert.Equal(t, 42, resp.TokensUsed)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "gpt-4o", gotBody.Model)
	require.Len(t, gotBody.Messages, 1)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "prompt", gotBody.Messages[0].Content)
}

func TestOpenAIClientCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "Rate limit reached", "code": "rate_limit_exceeded"}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "gpt-4o"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate_limit_exceeded", apiErr.Code)
	assert.Equal(t, "Rate limit reached", apiErr.Message)
	assert.Equal(t, KindRateLimit, Classify(err))
}

func TestOpenAIClientCompleteUnparsableErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "gpt-4o"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	// Raw body is kept when the error payload is not OpenAI-shaped.
	assert.Equal(t, "upstream exploded", apiErr.Message)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, KindServerError, Classify(err))
}

func TestOpenAIClientCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": [], "usage": {"total_tokens": 0}}`))
	}))
	defer server.Close()

	client := NewOpenAIClient("test-key", server.URL, 5*time.Second)
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "gpt-4o"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAIClientCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewOpenAIClient("test-key", server.URL, 50*time.Millisecond)
	_, err := client.Complete(context.Background(), CompletionRequest{Model: "gpt-4o"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, Classify(err))
}

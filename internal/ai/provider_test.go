package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQuota(t *testing.T) {
	assert.True(t, IsQuota(&ProviderError{StatusCode: 429, Body: "slow down"}))
	assert.True(t, IsQuota(&ProviderError{StatusCode: 400, Body: "Quota exceeded for model"}))
	assert.True(t, IsQuota(&ProviderError{StatusCode: 503, Body: "rate limit reached"}))
	assert.True(t, IsQuota(fmt.Errorf("embed failed: %w", &ProviderError{StatusCode: 429})))

	assert.False(t, IsQuota(&ProviderError{StatusCode: 500, Body: "internal error"}))
	assert.False(t, IsQuota(errors.New("connection refused")))
	assert.False(t, IsQuota(nil))
}

func TestOpenAIEmbedPreservesOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"embedding":[1,0]},{"embedding":[0,1]},{"embedding":[0.5,0.5]}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		EmbeddingModel: "text-embedding-ada-002",
		Dimension:      2,
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1}, vectors[1])
	assert.Equal(t, []float32{0.5, 0.5}, vectors[2])
}

func TestOpenAIEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"embedding":[1,0]}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Dimension: 2})
	_, err := client.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorContains(t, err, "count mismatch")
}

func TestOpenAIQuotaStatusSurfacesAsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"requests per minute exceeded"}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, Dimension: 2})
	_, err := client.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, IsQuota(err))
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"第一条规定了立法目的。"}}]}`)
	}))
	defer server.Close()

	client := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, ChatModel: "gpt-3.5-turbo", Dimension: 2})
	answer, err := client.Generate(context.Background(), "立法目的是什么？")
	require.NoError(t, err)
	assert.Equal(t, "第一条规定了立法目的。", answer)
	assert.Equal(t, "gpt-3.5-turbo", client.Name())
}

func TestGeminiEmbedAndGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("key"))
		switch {
		case r.URL.Path == "/models/text-embedding-004:batchEmbedContents":
			fmt.Fprint(w, `{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`)
		case r.URL.Path == "/models/gemini-pro:generateContent":
			fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"答案"}]}}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewGeminiClient(GeminiConfig{
		BaseURL:        server.URL,
		APIKey:         "key",
		ChatModel:      "gemini-pro",
		EmbeddingModel: "text-embedding-004",
		Dimension:      2,
	})

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0}, vectors[0])

	answer, err := client.Generate(context.Background(), "问题")
	require.NoError(t, err)
	assert.Equal(t, "答案", answer)
}

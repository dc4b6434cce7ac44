package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Provider is the capability surface of an embedding/generation
// backend. An implementation is chosen once at startup; its embedding
// dimension is a fixed property that must match the vector index.
type Provider interface {
	// Name reports the generation model identifier returned in answers.
	Name() string
	// Dimension is the embedding vector size this provider produces.
	Dimension() int
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Generate produces a completion for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderError is a non-2xx response from the backend. Quota
// rejections are recognized by status code or body wording and are the
// only retryable provider failures.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider response status %d: %s", e.StatusCode, e.Body)
}

// IsQuota reports whether err is a provider quota/rate-limit
// rejection. Matches HTTP 429 plus the wording used by OpenAI-style
// and Gemini backends.
func IsQuota(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	if pe.StatusCode == http.StatusTooManyRequests {
		return true
	}
	body := strings.ToLower(pe.Body)
	return strings.Contains(body, "quota") || strings.Contains(body, "rate limit")
}

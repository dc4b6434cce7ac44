package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lawrag/internal/ai"
)

type fakeProvider struct {
	embedFn func(texts []string) ([][]float32, error)
	calls   int
	batches [][]string
}

func (f *fakeProvider) Name() string   { return "fake-model" }
func (f *fakeProvider) Dimension() int { return 2 }

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	return f.embedFn(texts)
}

func (f *fakeProvider) Generate(context.Context, string) (string, error) {
	return "", errors.New("not implemented")
}

func identityEmbed(texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1}
	}
	return vectors, nil
}

func newTestGateway(p ai.Provider, cfg Config) (*Gateway, *[]time.Duration) {
	g := NewGateway(p, cfg, zap.NewNop().Sugar())
	var waits []time.Duration
	g.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	// Record retry delays too.
	g.policy.Sleep = func(d time.Duration) { waits = append(waits, d) }
	return g, &waits
}

func TestEmbedBatchPreservesOrderAcrossBatches(t *testing.T) {
	provider := &fakeProvider{embedFn: identityEmbed}
	g, waits := newTestGateway(provider, Config{
		BatchSize:     2,
		BatchInterval: time.Second,
		MaxAttempts:   3,
		BaseDelay:     time.Second,
	})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := g.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0])
	}

	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, provider.batches)
	// Mandatory pause between batches, but not after the last one.
	assert.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	provider := &fakeProvider{embedFn: identityEmbed}
	g, _ := newTestGateway(provider, Config{BatchSize: 2})

	vectors, err := g.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
	assert.Zero(t, provider.calls)
}

func TestEmbedBatchRetriesQuotaWithIncreasingDelays(t *testing.T) {
	quotaErr := &ai.ProviderError{StatusCode: 429, Body: "quota exceeded"}
	failures := 3
	provider := &fakeProvider{}
	provider.embedFn = func(texts []string) ([][]float32, error) {
		if provider.calls <= failures {
			return nil, quotaErr
		}
		return identityEmbed(texts)
	}

	g, waits := newTestGateway(provider, Config{
		BatchSize:   10,
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
	})

	vectors, err := g.EmbedBatch(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	// 3 quota failures then success: exactly 4 attempts, linear delays.
	assert.Equal(t, 4, provider.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, *waits)
}

func TestEmbedBatchSurfacesExhaustedQuota(t *testing.T) {
	quotaErr := &ai.ProviderError{StatusCode: 429, Body: "quota exceeded"}
	provider := &fakeProvider{embedFn: func([]string) ([][]float32, error) { return nil, quotaErr }}

	g, _ := newTestGateway(provider, Config{BatchSize: 10, MaxAttempts: 3, BaseDelay: time.Second})

	_, err := g.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.True(t, ai.IsQuota(err))
	assert.Equal(t, 3, provider.calls)
}

func TestEmbedBatchDoesNotRetryOtherErrors(t *testing.T) {
	serverErr := &ai.ProviderError{StatusCode: 500, Body: "internal error"}
	provider := &fakeProvider{embedFn: func([]string) ([][]float32, error) { return nil, serverErr }}

	g, waits := newTestGateway(provider, Config{BatchSize: 10, MaxAttempts: 5, BaseDelay: time.Second})

	_, err := g.EmbedBatch(context.Background(), []string{"x"})
	require.Error(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Empty(t, *waits)
}

func TestEmbedBatchRejectsCountMismatch(t *testing.T) {
	provider := &fakeProvider{embedFn: func(texts []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	}}
	g, _ := newTestGateway(provider, Config{BatchSize: 10, MaxAttempts: 1})

	_, err := g.EmbedBatch(context.Background(), []string{"x", "y"})
	assert.ErrorContains(t, err, "2 texts")
}

func TestEmbedOne(t *testing.T) {
	provider := &fakeProvider{embedFn: func(texts []string) ([][]float32, error) {
		require.Len(t, texts, 1)
		return [][]float32{{42, 1}}, nil
	}}
	g, _ := newTestGateway(provider, Config{BatchSize: 1, MaxAttempts: 1})

	vector, err := g.EmbedOne(context.Background(), fmt.Sprintf("question %d", 1))
	require.NoError(t, err)
	assert.Equal(t, []float32{42, 1}, vector)
}

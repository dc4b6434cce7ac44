package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lawrag/internal/ai"
	"lawrag/internal/retry"
)

// Config throttles the gateway against a rate-limited provider.
type Config struct {
	// BatchSize is how many texts go to the provider per call. 1 is the
	// most conservative policy for aggressively limited free tiers.
	BatchSize int
	// BatchInterval is a mandatory pause between consecutive batches,
	// applied even on success to stay under per-minute quotas.
	BatchInterval time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
}

// Gateway converts texts into embedding vectors through an ai.Provider
// while keeping the call rate under the provider's quota. Quota errors
// retry the same batch with linearly increasing delays; any other
// error propagates immediately.
type Gateway struct {
	provider ai.Provider
	cfg      Config
	policy   retry.Policy
	logger   *zap.SugaredLogger

	// sleep is swapped out in tests.
	sleep func(context.Context, time.Duration) error
}

func NewGateway(provider ai.Provider, cfg Config, logger *zap.SugaredLogger) *Gateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	g := &Gateway{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
	g.policy = retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Retryable: func(err error) bool {
			if ai.IsQuota(err) {
				logger.Warnw("provider quota hit, will retry", "error", err)
				return true
			}
			return false
		},
	}
	g.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g
}

// Dimension reports the active provider's fixed vector size.
func (g *Gateway) Dimension() int { return g.provider.Dimension() }

// EmbedBatch embeds texts in order, one provider batch at a time. The
// result has exactly one vector per input text. On failure nothing is
// returned; vectors already computed for earlier batches are discarded
// by the caller, never partially inserted.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.cfg.BatchSize {
		end := start + g.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var batchVectors [][]float32
		err := g.policy.Do(ctx, func() error {
			v, embedErr := g.provider.Embed(ctx, batch)
			if embedErr != nil {
				return embedErr
			}
			batchVectors = v
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("embed batch at offset %d failed: %w", start, err)
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("embed batch at offset %d returned %d vectors for %d texts",
				start, len(batchVectors), len(batch))
		}
		vectors = append(vectors, batchVectors...)

		if end < len(texts) && g.cfg.BatchInterval > 0 {
			if err := g.sleep(ctx, g.cfg.BatchInterval); err != nil {
				return nil, err
			}
		}
	}
	return vectors, nil
}

// EmbedOne embeds a single text, typically a search query.
func (g *Gateway) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

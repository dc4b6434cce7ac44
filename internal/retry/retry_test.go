package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThrottled = errors.New("throttled")

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Retryable: func(error) bool { return true }}
	p.Sleep = func(time.Duration) { t.Fatal("should not sleep on success") }

	err := p.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesWithLinearDelays(t *testing.T) {
	var delays []time.Duration
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		Retryable:   func(err error) bool { return errors.Is(err, errThrottled) },
		Sleep:       func(d time.Duration) { delays = append(delays, d) },
	}

	err := p.Do(context.Background(), func() error {
		calls++
		if calls <= 3 {
			return errThrottled
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, delays)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	p := Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Retryable:   func(error) bool { return true },
		Sleep:       func(time.Duration) {},
	}

	err := p.Do(context.Background(), func() error {
		calls++
		return errThrottled
	})
	assert.ErrorIs(t, err, errThrottled)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryNonRetryable(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
		Retryable:   func(err error) bool { return errors.Is(err, errThrottled) },
		Sleep:       func(time.Duration) { t.Fatal("should not sleep for non-retryable error") },
	}

	err := p.Do(context.Background(), func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, BaseDelay: time.Minute, Retryable: func(error) bool { return true }}
	err := p.Do(ctx, func() error { return errThrottled })
	assert.ErrorIs(t, err, context.Canceled)
}

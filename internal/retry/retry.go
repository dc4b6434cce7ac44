package retry

import (
	"context"
	"time"
)

// Policy retries an operation with linearly increasing delays:
// attempt n sleeps BaseDelay*n before attempt n+1. Only errors the
// Retryable predicate accepts are retried; everything else, and the
// final failure, propagates to the caller unchanged.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(error) bool
	// Sleep replaces the delay for tests. When nil the policy waits on
	// a timer and aborts early if ctx is cancelled.
	Sleep func(time.Duration)
}

// Do runs op up to MaxAttempts times.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if waitErr := p.wait(ctx, time.Duration(attempt)*p.BaseDelay); waitErr != nil {
			return waitErr
		}
	}
	return err
}

func (p Policy) wait(ctx context.Context, delay time.Duration) error {
	if p.Sleep != nil {
		p.Sleep(delay)
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

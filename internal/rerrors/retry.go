package rerrors

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryConfig configures the exponential backoff used by Do. The engine
// does not call Do: backfill guards the embedding provider with a circuit
// breaker only.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryConfig mirrors the teacher's conservative default: a handful
// of attempts with exponential backoff and jitter, capped low enough that a
// backfill pass over many nodes doesn't stall on one stuck provider call.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs fn, retrying on a ProviderError up to MaxAttempts times with
// exponential backoff. Non-ProviderError failures are returned immediately
// since retrying them cannot change the outcome.
func Do(ctx context.Context, cfg RetryConfig, fn func() error) error {
	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var re *RouxError
		if !errors.As(lastErr, &re) || !re.Retryable() {
			return lastErr
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		jitter := time.Duration(rand.Int63n(int64(delay) / 2 + 1))
		wait := delay + jitter
		if wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}

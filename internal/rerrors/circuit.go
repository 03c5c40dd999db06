package rerrors

import (
	"sync"
	"time"
)

// circuitState mirrors the classic closed/open/half-open breaker states.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// Breaker protects a flaky downstream (the embedding provider during
// backfill) from being hammered once it starts failing: after
// FailureThreshold consecutive failures it opens for ResetTimeout, then
// allows one trial call through (half-open) before fully closing again.
type Breaker struct {
	mu sync.Mutex

	FailureThreshold int
	ResetTimeout     time.Duration

	state    circuitState
	failures int
	openedAt time.Time
}

// NewBreaker creates a breaker with the given thresholds. A zero
// FailureThreshold defaults to 5, a zero ResetTimeout defaults to 30s.
func NewBreaker(failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &Breaker{FailureThreshold: failureThreshold, ResetTimeout: resetTimeout}
}

// Allow reports whether a call should be attempted right now.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitOpen:
		if time.Since(b.openedAt) >= b.ResetTimeout {
			b.state = circuitHalfOpen
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = circuitClosed
	b.failures = 0
}

// RecordFailure increments the failure count, opening the breaker once
// FailureThreshold consecutive failures have been seen (including while
// half-open, where a single failure reopens it immediately).
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == circuitHalfOpen {
		b.state = circuitOpen
		b.openedAt = time.Now()
		return
	}

	b.failures++
	if b.failures >= b.FailureThreshold {
		b.state = circuitOpen
		b.openedAt = time.Now()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == circuitOpen && time.Since(b.openedAt) < b.ResetTimeout
}

// ErrBreakerOpen is returned by Execute when the breaker is rejecting calls.
var ErrBreakerOpen = New(ProviderError, "embedding provider circuit is open", nil)

// Execute runs fn if the breaker allows it, recording the outcome. When the
// breaker is open it returns ErrBreakerOpen without calling fn, so a
// backfill pass can skip straight to "log once and move on" instead of
// waiting out a provider that is already known to be down.
func (b *Breaker) Execute(fn func() error) error {
	if !b.Allow() {
		return ErrBreakerOpen
	}
	err := fn()
	if err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Package retry implements a bounded retry policy with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts bounds the total number of tries, including the first.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the delay before the first retry.
	DefaultBaseDelay = 2 * time.Second

	// DefaultMaxDelay caps the backoff schedule.
	DefaultMaxDelay = 10 * time.Second

	// DefaultMultiplier is the backoff growth factor between attempts.
	DefaultMultiplier = 2.0
)

// Policy describes a bounded retry schedule. The zero value is not usable;
// construct with DefaultPolicy or fill every field.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy returns the standard policy: 3 attempts, exponential backoff
// from 2s capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// Do runs fn until it succeeds, fails non-transiently, or attempts are
// exhausted. The transient classifier decides which errors are retried;
// a nil classifier retries nothing. Backoff sleeps between attempts respect
// ctx cancellation, but a running fn is never interrupted from here — per
// attempt timeouts belong inside fn.
func (p Policy) Do(ctx context.Context, transient func(error) bool, fn func() error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy: MaxAttempts must be >= 1, got %d", p.MaxAttempts)
	}

	delay := p.BaseDelay
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if transient == nil || !transient(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", p.MaxAttempts, lastErr)
}

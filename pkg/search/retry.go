package search

import (
	"context"
	"math"
	"time"

	"github.com/jobsift/jobsift/pkg/board"
)

// RetryPolicy configures retry behavior for transient fetch failures.
//
// The policy is pure configuration; it carries no state and is shared
// freely between workers.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocation attempts, >= 1.
	MaxAttempts int

	// BaseDelay is the sleep before the first retry.
	BaseDelay time.Duration

	// BackoffFactor multiplies the delay per attempt, >= 1.0.
	BackoffFactor float64
}

// DefaultRetryPolicy mirrors the stock configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, BackoffFactor: 2.0}
}

// delay returns the backoff before retry number attempt (0-based):
// BaseDelay × BackoffFactor^attempt.
func (p RetryPolicy) delay(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor < 1.0 {
		factor = 1.0
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt)))
}

// retrySleep is an injection point for tests.
var retrySleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry invokes fn until it succeeds, fails permanently, or the policy
// is exhausted.
//
// Only transient errors (per board.IsTransient) are retried. The error
// from the final attempt is returned unchanged, so callers can still
// classify it.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if serr := retrySleep(ctx, policy.delay(attempt-1)); serr != nil {
				return serr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !board.IsTransient(err) {
			return err
		}
	}
	return err
}

package search

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsift/jobsift/pkg/board"
)

// stubSleep replaces the backoff sleep and records requested delays.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := retrySleep
	retrySleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { retrySleep = orig })
	return &slept
}

func transientErr() error {
	return fmt.Errorf("%w: connection reset", board.ErrTransient)
}

func permanentErr() error {
	return fmt.Errorf("%w: bad credentials", board.ErrPermanent)
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	slept := stubSleep(t)

	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestRetry_TransientExhaustion(t *testing.T) {
	stubSleep(t)

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, BackoffFactor: 2.0}
	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		return transientErr()
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "exactly MaxAttempts invocations")
	assert.True(t, board.IsTransient(err), "final error kept classifiable")
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	slept := stubSleep(t)

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, BackoffFactor: 2.0}
	_ = Retry(context.Background(), policy, func() error {
		return transientErr()
	})

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestRetry_PermanentNotRetried(t *testing.T) {
	stubSleep(t)

	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return permanentErr()
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, board.IsPermanent(err))
}

func TestRetry_RecoversOnLaterAttempt(t *testing.T) {
	stubSleep(t)

	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		if calls < 3 {
			return transientErr()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelledDuringBackoff(t *testing.T) {
	orig := retrySleep
	retrySleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	t.Cleanup(func() { retrySleep = orig })

	calls := 0
	err := Retry(context.Background(), DefaultRetryPolicy(), func() error {
		calls++
		return transientErr()
	})

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_DelayFloorsBackoffFactor(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, BackoffFactor: 0.5}
	assert.Equal(t, time.Second, p.delay(3), "factor below 1.0 treated as 1.0")
}

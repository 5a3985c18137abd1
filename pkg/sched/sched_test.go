package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{Interval: 0}.Validate())
	assert.Error(t, Config{Interval: -time.Hour}.Validate())
	assert.Error(t, Config{Interval: time.Hour, RetryDelay: -time.Minute}.Validate())
	assert.NoError(t, Config{Interval: time.Hour}.Validate())
}

func TestNextSlot_NoOverrun(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(10 * time.Minute)

	next, skipped := nextSlot(start, time.Hour, now)

	assert.Equal(t, start.Add(time.Hour), next)
	assert.Zero(t, skipped)
}

func TestNextSlot_OverrunSkipsMissedSlot(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Run took 90 minutes on an hourly cadence: the 13:00 slot is
	// gone, the next run lands at 14:00.
	now := start.Add(90 * time.Minute)

	next, skipped := nextSlot(start, time.Hour, now)

	assert.Equal(t, start.Add(2*time.Hour), next)
	assert.Equal(t, 1, skipped)
}

func TestNextSlot_LongOverrunSkipsSeveral(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(3*time.Hour + 5*time.Minute)

	next, skipped := nextSlot(start, time.Hour, now)

	assert.Equal(t, start.Add(4*time.Hour), next)
	assert.Equal(t, 3, skipped)
}

func TestNextSlot_ExactBoundarySkips(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Finishing exactly on the slot boundary still skips it; a slot
	// is only usable while it is strictly in the future.
	next, skipped := nextSlot(start, time.Hour, start.Add(time.Hour))

	assert.Equal(t, start.Add(2*time.Hour), next)
	assert.Equal(t, 1, skipped)
}

func TestOneShot_FiresOnceThenGoesDormant(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := oneShot{at: at}

	assert.Equal(t, at, s.Next(at.Add(-time.Minute)))
	assert.True(t, s.Next(at).IsZero())
	assert.True(t, s.Next(at.Add(time.Minute)).IsZero())
}

func TestRunOnce(t *testing.T) {
	var calls atomic.Int64
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), s.RunCount())
	assert.True(t, s.LastRunSuccess())
	assert.False(t, s.IsRunning())
}

func TestRunOnce_ErrorRecorded(t *testing.T) {
	boom := errors.New("board unavailable")
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error {
		return boom
	}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RunOnce(context.Background()), boom)
	assert.False(t, s.LastRunSuccess())
	assert.Equal(t, int64(1), s.FailCount())

	_, lastErr := s.LastRun()
	assert.ErrorIs(t, lastErr, boom)
}

func TestRunOnce_PanicRecovered(t *testing.T) {
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error {
		panic("bad plan")
	}, nil)
	require.NoError(t, err)

	runErr := s.RunOnce(context.Background())
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "bad plan")
	assert.Equal(t, int64(1), s.FailCount())
	assert.False(t, s.IsRunning())
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(Config{Interval: 0}, func(ctx context.Context) error { return nil }, nil)
	assert.Error(t, err)

	_, err = New(Config{Interval: time.Hour}, nil, nil)
	assert.Error(t, err)
}

func TestScheduler_FiresOnCadence(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	fired := make(chan struct{}, 8)
	s, err := New(Config{Interval: 50 * time.Millisecond}, func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("run %d never fired", i+1)
		}
	}
	assert.GreaterOrEqual(t, s.RunCount(), int64(2))
}

func TestScheduler_RetriesAfterFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	var calls atomic.Int64
	fired := make(chan error, 8)
	s, err := New(Config{
		Interval:   time.Hour,
		RetryDelay: 30 * time.Millisecond,
	}, func(ctx context.Context) error {
		if calls.Add(1) == 1 {
			err := errors.New("transient outage")
			fired <- err
			return err
		}
		fired <- nil
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	// Kick the first cycle directly so the test does not wait an hour.
	require.Error(t, s.RunOnce(context.Background()))
	<-fired

	select {
	case retryErr := <-fired:
		assert.NoError(t, retryErr)
	case <-time.After(2 * time.Second):
		t.Fatal("retry never fired")
	}
	assert.True(t, s.LastRunSuccess())
}

func TestScheduler_RunsNeverOverlap(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	// A fast-failing first cycle arms the retry slot so that it and
	// the re-armed cadence slot both land inside the slow cycles that
	// follow. Without serialization the two would run concurrently.
	var calls, inFlight, maxInFlight atomic.Int64
	s, err := New(Config{
		Interval:   150 * time.Millisecond,
		RetryDelay: 200 * time.Millisecond,
	}, func(ctx context.Context) error {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if n <= seen || maxInFlight.CompareAndSwap(seen, n) {
				break
			}
		}

		if calls.Add(1) == 1 {
			return errors.New("transient outage")
		}
		time.Sleep(400 * time.Millisecond)
		return nil
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.RunOnce(context.Background()))

	time.Sleep(900 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	assert.GreaterOrEqual(t, calls.Load(), int64(3), "retry and cadence slots both fired")
	assert.Equal(t, int64(1), maxInFlight.Load(), "cycles must not execute concurrently")
}

func TestScheduler_StartTwiceRejected(t *testing.T) {
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error { return nil }, nil)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_StopBeforeStartIsNoOp(t *testing.T) {
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error { return nil }, nil)
	require.NoError(t, err)

	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_NextRunArmedOnStart(t *testing.T) {
	s, err := New(Config{Interval: time.Hour}, func(ctx context.Context) error { return nil }, nil)
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	next := s.NextRun()
	assert.WithinDuration(t, before.Add(time.Hour), next, 5*time.Second)
}

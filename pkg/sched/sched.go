// Package sched runs a search cycle on a fixed start-to-start cadence.
//
// The cadence anchors on when each run starts, not when it finishes. If
// a run overruns its own interval, the slots it missed are skipped and
// the next run lands on the first future multiple of the interval. A
// failed run additionally schedules a single retry after a configurable
// delay, in a slot of its own so it never displaces the main cadence.
package sched

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RunFunc is the work executed on each scheduled slot.
type RunFunc func(ctx context.Context) error

// Config controls the cadence.
type Config struct {
	// Interval is the start-to-start spacing between runs.
	Interval time.Duration

	// RetryDelay is how long after a failed run the one-shot retry
	// fires. Zero disables retries.
	RetryDelay time.Duration
}

// Validate rejects configurations the scheduler cannot honor.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative, got %s", c.RetryDelay)
	}
	return nil
}

// oneShot is a cron schedule that fires exactly once. After the target
// time passes it reports no next activation, which cron treats as a
// dormant entry.
type oneShot struct {
	at time.Time
}

func (s oneShot) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

// Scheduler drives a RunFunc on the configured cadence.
type Scheduler struct {
	cfg Config
	run RunFunc
	log *zap.Logger

	cron *cron.Cron
	now  func() time.Time

	// runMu serializes cycles: cron dispatches every entry on its own
	// goroutine, so a retry slot landing during a slow cadence run
	// would otherwise execute concurrently with it.
	runMu sync.Mutex

	mu         sync.Mutex
	mainEntry  cron.EntryID
	retryEntry cron.EntryID
	nextRun    time.Time
	lastRun    time.Time
	lastErr    error
	started    bool

	baseCtx context.Context
	cancel  context.CancelFunc

	running      atomic.Bool
	runCount     atomic.Int64
	failCount    atomic.Int64
	skippedSlots atomic.Int64
}

// New creates a scheduler. At most one cycle executes at a time: a
// slot that fires while another cycle is in flight waits for it to
// finish before running.
func New(cfg Config, run RunFunc, log *zap.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run function is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scheduler{
		cfg:  cfg,
		run:  run,
		log:  log,
		cron: cron.New(),
		now:  time.Now,
	}, nil
}

// Start arms the first slot and begins dispatching. The context bounds
// every run the scheduler launches; cancelling it aborts the run in
// flight but does not stop the scheduler itself.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.baseCtx, s.cancel = context.WithCancel(ctx)

	first := s.now().Add(s.cfg.Interval)
	s.armMainLocked(first)
	s.cron.Start()

	s.log.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Time("first_run", first))
	return nil
}

// Stop halts dispatching and waits for any run in flight to finish.
// The context bounds the wait; on expiry the in-flight run is cancelled
// and the context error returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// RunOnce executes a single cycle synchronously, outside the cadence.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.execute(ctx, false)
}

// IsRunning reports whether a cycle is in flight.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// RunCount returns the number of completed cycles, retries included.
func (s *Scheduler) RunCount() int64 {
	return s.runCount.Load()
}

// FailCount returns the number of cycles that ended in error.
func (s *Scheduler) FailCount() int64 {
	return s.failCount.Load()
}

// SkippedSlots returns the number of cadence slots skipped because a
// run overran its interval.
func (s *Scheduler) SkippedSlots() int64 {
	return s.skippedSlots.Load()
}

// LastRunSuccess reports whether the most recent cycle completed
// without error. It is false before any cycle has run.
func (s *Scheduler) LastRunSuccess() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.lastRun.IsZero() && s.lastErr == nil
}

// LastRun returns the start time of the most recent cycle and its
// error, if any.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// NextRun returns when the next cadence slot fires.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRun
}

// armMainLocked replaces the main cadence entry with a one-shot at the
// given time. Caller holds s.mu.
func (s *Scheduler) armMainLocked(at time.Time) {
	if s.mainEntry != 0 {
		s.cron.Remove(s.mainEntry)
	}
	s.mainEntry = s.cron.Schedule(oneShot{at: at}, cron.FuncJob(s.dispatch))
	s.nextRun = at
}

// armRetryLocked replaces the retry entry with a one-shot at the given
// time. Caller holds s.mu.
func (s *Scheduler) armRetryLocked(at time.Time) {
	if s.retryEntry != 0 {
		s.cron.Remove(s.retryEntry)
	}
	s.retryEntry = s.cron.Schedule(oneShot{at: at}, cron.FuncJob(s.dispatchRetry))
}

func (s *Scheduler) dispatch() {
	_ = s.execute(s.baseCtx, true)
}

func (s *Scheduler) dispatchRetry() {
	s.log.Info("retrying failed run")
	_ = s.execute(s.baseCtx, false)
}

// execute runs one cycle. When reschedule is true the next cadence slot
// is armed from this run's start time, skipping any slots the run
// overran. runMu guarantees at most one cycle in flight.
func (s *Scheduler) execute(ctx context.Context, reschedule bool) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := s.now()
	s.running.Store(true)

	err := s.invoke(ctx)

	s.running.Store(false)
	s.runCount.Add(1)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	if reschedule && s.started {
		next, skipped := nextSlot(start, s.cfg.Interval, s.now())
		if skipped > 0 {
			s.skippedSlots.Add(int64(skipped))
			s.log.Warn("run overran its interval, skipping slots",
				zap.Int("skipped", skipped),
				zap.Time("next_run", next))
		}
		s.armMainLocked(next)
	}
	if err != nil && s.started && s.cfg.RetryDelay > 0 {
		s.armRetryLocked(s.now().Add(s.cfg.RetryDelay))
	}
	s.mu.Unlock()

	if err != nil {
		s.failCount.Add(1)
		s.log.Error("scheduled run failed", zap.Error(err))
	} else {
		s.log.Info("scheduled run complete",
			zap.Duration("took", s.now().Sub(start)))
	}
	return err
}

// invoke calls the run function with a panic boundary so a panicking
// cycle never takes down the scheduler.
func (s *Scheduler) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
			s.log.Error("panic in scheduled run",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	return s.run(ctx)
}

// nextSlot computes the next cadence slot after a run that started at
// start. Slots advance in whole intervals from the start time; any slot
// already in the past when the run finishes is skipped.
func nextSlot(start time.Time, interval time.Duration, now time.Time) (time.Time, int) {
	next := start.Add(interval)
	skipped := 0
	for !next.After(now) {
		next = next.Add(interval)
		skipped++
	}
	return next, skipped
}

// Package search implements the concurrent, rate-limited execution of
// (query, location) search tasks against an external job-board source.
//
// The orchestrator coordinates a bounded worker pool: each worker
// acquires throttling permission, fetches with retry, post-filters the
// rows, and merges survivors into a shared deduplicated result set.
// Task failures are independent; a failing task never cancels or
// blocks its siblings.
package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jobsift/jobsift/pkg/board"
	"github.com/jobsift/jobsift/pkg/match"
	"github.com/jobsift/jobsift/pkg/model"
	"github.com/jobsift/jobsift/pkg/throttle"
)

// Config configures orchestrator behavior.
type Config struct {
	// Workers is the size of the worker pool. Default: 5.
	Workers int

	// RateLimit is an optional global cap on fetch calls per second
	// across all workers, layered on top of the per-site throttle.
	// Zero means uncapped.
	RateLimit float64

	// Retry applies to transient fetch failures only.
	Retry RetryPolicy

	// Fetch carries the per-call parameters forwarded to the source.
	Fetch board.FetchOptions
}

// Orchestrator executes a full task list against a board source.
//
// An Orchestrator is safe for single use only; create a new one for
// each run so counters and run identity start fresh.
type Orchestrator struct {
	source  board.Source
	limiter *throttle.Limiter
	filter  *match.PostFilter // nil disables post-filtering
	cfg     Config
	log     *zap.Logger
	runID   string

	// Global request cap (nil if uncapped).
	rateCap *rate.Limiter

	// Atomic counters updated from every completing worker.
	successTasks atomic.Int64
	failedTasks  atomic.Int64
	rowsFound    atomic.Int64
	rowsDropped  atomic.Int64
}

// New creates an orchestrator.
//
// The post filter may be nil, in which case all fetched rows pass
// straight to deduplication.
func New(source board.Source, limiter *throttle.Limiter, filter *match.PostFilter, cfg Config, log *zap.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if log == nil {
		log = zap.NewNop()
	}

	o := &Orchestrator{
		source:  source,
		limiter: limiter,
		filter:  filter,
		cfg:     cfg,
		log:     log,
		runID:   uuid.New().String(),
	}
	if cfg.RateLimit > 0 {
		o.rateCap = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return o
}

// RunID returns the correlation ID for this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// ExpandTasks builds the task list as the cartesian product of queries
// and locations.
func ExpandTasks(queries, locations []string) []model.SearchTask {
	tasks := make([]model.SearchTask, 0, len(queries)*len(locations))
	for _, loc := range locations {
		for _, q := range queries {
			tasks = append(tasks, model.SearchTask{Query: q, Location: loc})
		}
	}
	return tasks
}

// Run executes the task list and returns the deduplicated rows with a
// run summary.
//
// Run blocks until every task completes or the context is cancelled.
// Per-task failures are recorded in the summary, never escalated; a
// run that yields zero rows is a valid, successful run. The only error
// Run returns is context cancellation.
func (o *Orchestrator) Run(ctx context.Context, tasks []model.SearchTask) ([]model.Job, *model.SearchSummary, error) {
	summary := &model.SearchSummary{
		TotalTasks: len(tasks),
		StartTime:  time.Now(),
	}
	dedup := NewDeduplicator()

	o.log.Info("starting search run",
		zap.String("run_id", o.runID),
		zap.Int("tasks", len(tasks)),
		zap.Int("workers", o.cfg.Workers))

	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for _, task := range tasks {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(t model.SearchTask) {
			defer wg.Done()
			defer func() { <-sem }()
			o.runTask(ctx, t, dedup)
		}(task)
	}

	wg.Wait()

	summary.SuccessfulTasks = int(o.successTasks.Load())
	summary.FailedTasks = int(o.failedTasks.Load())
	summary.TotalJobsFound = int(o.rowsFound.Load())
	summary.UniqueJobs = dedup.Len()
	summary.Finish()

	o.log.Info("search run complete",
		zap.String("run_id", o.runID),
		zap.Int("successful_tasks", summary.SuccessfulTasks),
		zap.Int("failed_tasks", summary.FailedTasks),
		zap.Int("rows_found", summary.TotalJobsFound),
		zap.Int("unique_rows", summary.UniqueJobs),
		zap.Duration("duration", summary.Duration()))

	if err := ctx.Err(); err != nil {
		return dedup.Jobs(), summary, err
	}
	return dedup.Jobs(), summary, nil
}

// runTask executes one task: throttle, fetch with retry, post-filter,
// merge. All outcomes are absorbed into counters.
func (o *Orchestrator) runTask(ctx context.Context, task model.SearchTask, dedup *Deduplicator) {
	rows, err := o.fetchTask(ctx, task)
	if err != nil {
		o.failedTasks.Add(1)
		o.log.Warn("task failed",
			zap.String("run_id", o.runID),
			zap.String("query", task.Query),
			zap.String("location", task.Location),
			zap.Bool("transient", board.IsTransient(err)),
			zap.Error(err))
		return
	}

	o.successTasks.Add(1)
	o.rowsFound.Add(int64(len(rows)))

	kept := 0
	for i := range rows {
		// Stamp task provenance; some sources leave it blank.
		if rows[i].SearchQuery == "" {
			rows[i].SearchQuery = task.Query
		}
		if rows[i].SearchLocation == "" {
			rows[i].SearchLocation = task.Location
		}

		if o.filter != nil && !o.filter.Keep(&rows[i]) {
			o.rowsDropped.Add(1)
			continue
		}
		if dedup.TryInsert(rows[i]) {
			kept++
		}
	}

	o.log.Debug("task complete",
		zap.String("query", task.Query),
		zap.String("location", task.Location),
		zap.Int("rows", len(rows)),
		zap.Int("kept", kept))
}

// fetchTask acquires throttling permission and invokes the source with
// the retry policy applied.
func (o *Orchestrator) fetchTask(ctx context.Context, task model.SearchTask) ([]model.Job, error) {
	if o.limiter != nil {
		if err := o.limiter.Acquire(ctx, o.cfg.Fetch.Sites); err != nil {
			return nil, err
		}
	}
	if o.rateCap != nil {
		if err := o.rateCap.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var rows []model.Job
	err := Retry(ctx, o.cfg.Retry, func() error {
		fetched, ferr := o.source.Fetch(ctx, task, o.cfg.Fetch)
		if ferr != nil {
			return ferr
		}
		rows = fetched
		return nil
	})
	return rows, err
}

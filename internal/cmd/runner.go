package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/observability"
	"github.com/jobsift/jobsift/pkg/board"
	"github.com/jobsift/jobsift/pkg/export"
	"github.com/jobsift/jobsift/pkg/jobstore"
	"github.com/jobsift/jobsift/pkg/match"
	"github.com/jobsift/jobsift/pkg/model"
	"github.com/jobsift/jobsift/pkg/notify"
	"github.com/jobsift/jobsift/pkg/plan"
	"github.com/jobsift/jobsift/pkg/score"
	"github.com/jobsift/jobsift/pkg/search"
	"github.com/jobsift/jobsift/pkg/throttle"
)

// summaryRounding trims sub-millisecond noise from printed durations.
const summaryRounding = 10 * time.Millisecond

// runner composes the full pipeline for one plan: fetch, filter,
// dedup, score, persist, export, notify. A runner is reused across
// scheduled cycles; each cycle gets a fresh orchestrator.
type runner struct {
	settings *config.Settings
	plan     *plan.Plan
	db       *sql.DB
	source   board.Source
	limiter  *throttle.Limiter
	filter   *match.PostFilter
	scorer   *score.Scorer
	notifier *notify.Notifier
	log      *zap.Logger
}

// newRunner opens the job store and builds the pipeline. The returned
// cleanup closes the store.
func newRunner(ctx context.Context, s *config.Settings, planPath string) (*runner, func(), error) {
	p, err := plan.Load(planPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := jobstore.Open(ctx, jobstore.Config{Path: s.Database.Path})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = db.Close() }

	if err := jobstore.Migrate(ctx, db); err != nil {
		cleanup()
		return nil, nil, err
	}

	notifier, err := notify.New(notify.Config{
		Enabled:  s.Telegram.Enabled,
		Token:    s.Telegram.Token,
		ChatIDs:  s.Telegram.ChatIDs,
		TopN:     s.Telegram.TopN,
		MinScore: s.Telegram.MinScore,
	}, observability.CLILogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	r := &runner{
		settings: s,
		plan:     p,
		db:       db,
		source:   board.NewHTTPSource(s.Adzuna.BaseURL, s.Adzuna.AppID, s.Adzuna.AppKey),
		scorer: score.New(score.Rules{
			Keywords:  p.KeywordsByCategory(),
			Weights:   p.WeightsByCategory(),
			Threshold: p.Scoring.Threshold,
		}),
		notifier: notifier,
		log:      observability.CLILogger,
	}

	if s.Throttle.Enabled {
		r.limiter = throttle.New(throttle.Config{
			Enabled:      true,
			DefaultDelay: s.Throttle.DefaultDelay,
			SiteDelays:   s.Throttle.SiteDelays,
			Jitter:       s.Throttle.Jitter,
		})
	}

	if p.Filter.QueryTermsEnabled() || p.Filter.LocationEnabled() {
		r.filter = match.New(match.Config{
			MinSimilarity:   p.Filter.MinSimilarity,
			CheckQueryTerms: p.Filter.QueryTermsEnabled(),
			CheckLocation:   p.Filter.LocationEnabled(),
		})
	}

	return r, cleanup, nil
}

func (r *runner) fetchOptions() board.FetchOptions {
	return board.FetchOptions{
		Sites:         r.plan.Sites,
		ResultsWanted: r.plan.Fetch.ResultsWanted,
		HoursOld:      r.plan.Fetch.HoursOld,
		Country:       r.plan.Fetch.Country,
		RemoteOnly:    r.plan.Fetch.RemoteOnly,
	}
}

// runOnce executes one full cycle and returns its summary.
//
// Per-task fetch failures are tolerated; the cycle itself fails only
// when every task failed, so the scheduler can arm its retry slot.
func (r *runner) runOnce(ctx context.Context) (*model.SearchSummary, error) {
	tasks := search.ExpandTasks(r.plan.AllQueries(), r.plan.Locations)

	orch := search.New(r.source, r.limiter, r.filter, search.Config{
		Workers:   r.settings.Workers,
		RateLimit: r.settings.RateLimit,
		Retry: search.RetryPolicy{
			MaxAttempts:   r.settings.Retry.MaxAttempts,
			BaseDelay:     r.settings.Retry.BaseDelay,
			BackoffFactor: r.settings.Retry.BackoffFactor,
		},
		Fetch: r.fetchOptions(),
	}, r.log)

	jobs, summary, err := orch.Run(ctx, tasks)
	if err != nil {
		return summary, err
	}

	relevant := r.scorer.FilterRelevant(jobs)
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].RelevanceScore > relevant[j].RelevanceScore
	})
	summary.RelevantJobs = len(relevant)

	now := time.Now()
	newCount, err := jobstore.SaveBatch(ctx, r.db, relevant, now)
	if err != nil {
		return summary, fmt.Errorf("persist jobs: %w", err)
	}
	summary.NewJobs = newCount

	if r.settings.Export.Enabled && len(relevant) > 0 {
		path, err := export.WriteCSV(relevant, r.settings.Export.Dir, now)
		if err != nil {
			return summary, fmt.Errorf("export results: %w", err)
		}
		r.log.Info("results exported", zap.String("path", path))
	}

	if err := r.notifier.NotifyRun(ctx, summary, relevant); err != nil {
		// Delivery trouble should not fail an otherwise good run.
		r.log.Warn("notification delivery failed", zap.Error(err))
	}

	r.log.Info("cycle complete",
		zap.String("run_id", orch.RunID()),
		zap.Int("unique_jobs", summary.UniqueJobs),
		zap.Int("relevant_jobs", summary.RelevantJobs),
		zap.Int("new_jobs", summary.NewJobs),
		zap.Duration("duration", summary.Duration()))

	if summary.TotalTasks > 0 && summary.SuccessfulTasks == 0 {
		return summary, fmt.Errorf("all %d search tasks failed", summary.TotalTasks)
	}
	return summary, nil
}

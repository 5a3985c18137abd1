package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jobsift/jobsift/internal/observability"
	"github.com/jobsift/jobsift/internal/server"
	"github.com/jobsift/jobsift/pkg/sched"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run search cycles on a recurring cadence",
	Long: `Run the search pipeline repeatedly on the configured interval until
interrupted. The cadence is start-to-start: each run is scheduled
relative to when the previous one began, and slots missed by an
overrunning cycle are skipped.

With the status server enabled, health and scheduler state are served
over HTTP while the loop runs.

Example:
  jobsift schedule --plan plan.yaml
  jobsift schedule --plan plan.yaml --immediate`,
	RunE: runSchedule,
}

var (
	schedulePlanPath  string
	scheduleImmediate bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVarP(&schedulePlanPath, "plan", "p", "", "Path to search plan (required)")
	scheduleCmd.Flags().BoolVar(&scheduleImmediate, "immediate", false, "Run one cycle immediately before starting the cadence")

	_ = scheduleCmd.MarkFlagRequired("plan")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, cleanup, err := newRunner(ctx, settings, schedulePlanPath)
	if err != nil {
		observability.CLILogger.Error("Failed to build pipeline", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Failed to build pipeline", err)
	}
	defer cleanup()

	scheduler, err := sched.New(sched.Config{
		Interval:   settings.Scheduler.Interval,
		RetryDelay: settings.Scheduler.RetryDelay,
	}, func(runCtx context.Context) error {
		_, runErr := r.runOnce(runCtx)
		return runErr
	}, observability.CLILogger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid scheduler configuration", err)
	}

	if err := scheduler.Start(ctx); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to start scheduler", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if settings.Server.Enabled {
		g.Go(func() error {
			return serveStatus(gctx, r, scheduler)
		})
	}

	if scheduleImmediate {
		g.Go(func() error {
			// Failures here are retried by the scheduler; do not
			// take the whole process down.
			if _, err := r.runOnce(gctx); err != nil {
				observability.CLILogger.Warn("immediate cycle failed", zap.Error(err))
			}
			return nil
		})
	}

	observability.CLILogger.Info("scheduler running",
		zap.Duration("interval", settings.Scheduler.Interval),
		zap.Time("next_run", scheduler.NextRun()))

	<-ctx.Done()
	observability.CLILogger.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), settings.Server.ShutdownTimeout)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		observability.CLILogger.Warn("scheduler stop timed out", zap.Error(err))
	}

	if err := g.Wait(); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Status server failed", err)
	}
	return exitError(foundry.ExitSignalInt, "Interrupted", ctx.Err())
}

// serveStatus runs the status server until the context is cancelled.
func serveStatus(ctx context.Context, r *runner, scheduler *sched.Scheduler) error {
	health := server.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("db", server.HealthCheckerFunc(func(ctx context.Context) error {
		return r.db.PingContext(ctx)
	}))
	health.RegisterChecker("scheduler", server.HealthCheckerFunc(func(context.Context) error {
		// The scheduler has no failure mode of its own; probing it
		// confirms the process is still dispatching.
		return nil
	}))

	srv := server.New(server.Config{
		Host:            settings.Server.Host,
		Port:            settings.Server.Port,
		ReadTimeout:     settings.Server.ReadTimeout,
		WriteTimeout:    settings.Server.WriteTimeout,
		IdleTimeout:     settings.Server.IdleTimeout,
		ShutdownTimeout: settings.Server.ShutdownTimeout,
	}, health, schedulerStatus(scheduler), observability.CLILogger)

	return srv.Start(ctx)
}

func schedulerStatus(s *sched.Scheduler) server.StatusFunc {
	return func() server.StatusSnapshot {
		snap := server.StatusSnapshot{
			Running:      s.IsRunning(),
			RunCount:     s.RunCount(),
			FailCount:    s.FailCount(),
			SkippedSlots: s.SkippedSlots(),
		}
		if last, err := s.LastRun(); !last.IsZero() {
			snap.LastRun = &last
			if err != nil {
				snap.LastError = err.Error()
			}
		}
		if next := s.NextRun(); !next.IsZero() {
			snap.NextRun = &next
		}
		return snap
	}
}

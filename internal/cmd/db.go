package cmd

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/observability"
	"github.com/jobsift/jobsift/pkg/jobstore"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and maintain the job database",
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show corpus statistics",
	RunE:  runDBStats,
}

var dbCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete jobs not seen recently",
	Long: `Delete jobs whose last sighting is older than the cutoff. Jobs with
an application record are always kept.

Example:
  jobsift db cleanup --older-than 720h`,
	RunE: runDBCleanup,
}

var dbMarkAppliedCmd = &cobra.Command{
	Use:   "mark-applied <job-key>",
	Short: "Record that you applied to a job",
	Args:  cobra.ExactArgs(1),
	RunE:  runDBMarkApplied,
}

var dbCleanupOlderThan time.Duration

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatsCmd)
	dbCmd.AddCommand(dbCleanupCmd)
	dbCmd.AddCommand(dbMarkAppliedCmd)

	dbCleanupCmd.Flags().DurationVar(&dbCleanupOlderThan, "older-than", 30*24*time.Hour, "Delete jobs not seen within this duration")
}

func openStore(cmd *cobra.Command) (*sql.DB, func(), error) {
	ctx := cmd.Context()

	db, err := jobstore.Open(ctx, jobstore.Config{Path: settings.Database.Path})
	if err != nil {
		observability.CLILogger.Error("Failed to open job store", zap.Error(err))
		return nil, nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to open job store", err)
	}
	cleanup := func() { _ = db.Close() }

	if err := jobstore.Migrate(ctx, db); err != nil {
		cleanup()
		return nil, nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to migrate job store", err)
	}
	return db, cleanup, nil
}

func runDBStats(cmd *cobra.Command, args []string) error {
	db, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := jobstore.GetStats(cmd.Context(), db, time.Now())
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to compute stats", err)
	}

	fmt.Println("=== Job Store ===")
	fmt.Printf("Jobs:          %d\n", stats.TotalJobs)
	fmt.Printf("Applied:       %d\n", stats.AppliedJobs)
	fmt.Printf("Remote:        %d\n", stats.RemoteJobs)
	fmt.Printf("New (24h):     %d\n", stats.NewLast24h)
	fmt.Printf("Score:         avg %.1f, max %d\n", stats.AverageScore, stats.MaxScore)
	if stats.OldestSeen != nil && stats.NewestSeen != nil {
		fmt.Printf("First seen:    %s to %s\n",
			stats.OldestSeen.Format("2006-01-02"), stats.NewestSeen.Format("2006-01-02"))
	}

	if len(stats.BySite) > 0 {
		sites := make([]string, 0, len(stats.BySite))
		for site := range stats.BySite {
			sites = append(sites, site)
		}
		sort.Strings(sites)
		fmt.Println("By site:")
		for _, site := range sites {
			fmt.Printf("  %6d  %s\n", stats.BySite[site], site)
		}
	}
	return nil
}

func runDBCleanup(cmd *cobra.Command, args []string) error {
	db, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cutoff := time.Now().Add(-dbCleanupOlderThan)
	deleted, err := jobstore.DeleteOlderThan(cmd.Context(), db, cutoff)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Cleanup failed", err)
	}

	observability.CLILogger.Info("cleanup complete",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cutoff))
	fmt.Printf("Deleted %d jobs not seen since %s\n", deleted, cutoff.Format("2006-01-02"))
	return nil
}

func runDBMarkApplied(cmd *cobra.Command, args []string) error {
	db, cleanup, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	key := args[0]
	ok, err := jobstore.MarkApplied(cmd.Context(), db, key, time.Now())
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to mark applied", err)
	}
	if !ok {
		return exitError(foundry.ExitInvalidArgument, "Unknown job key",
			fmt.Errorf("no job with key %s", key))
	}

	fmt.Printf("Marked %s as applied\n", key)
	return nil
}

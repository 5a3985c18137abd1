package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/observability"
	"github.com/jobsift/jobsift/pkg/jobstore"
	"github.com/jobsift/jobsift/pkg/model"
	"github.com/jobsift/jobsift/pkg/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarize the stored job corpus",
	Long: `Aggregate the jobs collected over the last days: top companies and
locations, recurring title keywords, remote share, and salary spread.

Example:
  jobsift analyze
  jobsift analyze --days 7 --top 5`,
	RunE: runAnalyze,
}

var (
	analyzeDays int
	analyzeTopN int
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 30, "Look back this many days")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top", 10, "List length for ranked sections")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := jobstore.Open(ctx, jobstore.Config{Path: settings.Database.Path})
	if err != nil {
		observability.CLILogger.Error("Failed to open job store", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to open job store", err)
	}
	defer func() { _ = db.Close() }()

	if err := jobstore.Migrate(ctx, db); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to migrate job store", err)
	}

	since := time.Now().AddDate(0, 0, -analyzeDays)
	stored, err := jobstore.TopJobs(ctx, db, since, 100000)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to query jobs", err)
	}

	jobs := make([]model.Job, len(stored))
	for i := range stored {
		jobs[i] = stored[i].Job
	}

	r := report.Build(jobs, report.Options{TopN: analyzeTopN})

	fmt.Printf("=== Corpus Report (last %d days) ===\n\n", analyzeDays)
	fmt.Printf("Jobs:        %d (%d remote, %d onsite)\n", r.TotalJobs, r.RemoteJobs, r.OnsiteJobs)
	if r.JobsWithSalary > 0 {
		fmt.Printf("Salary:      %.0f - %.0f average (%d postings with figures)\n",
			r.AverageMinAmount, r.AverageMaxAmount, r.JobsWithSalary)
	}

	printRanked := func(title string, counts []report.Count) {
		if len(counts) == 0 {
			return
		}
		fmt.Printf("\n%s:\n", title)
		for _, c := range counts {
			fmt.Printf("  %4d  %s\n", c.Count, c.Value)
		}
	}
	printRanked("Top companies", r.TopCompanies)
	printRanked("Top locations", r.TopLocations)
	printRanked("Title keywords", r.TitleKeywords)

	return nil
}

package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/observability"
	"github.com/jobsift/jobsift/pkg/plan"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a single search cycle from a plan",
	Long: `Run one search cycle: fetch every (query, location) task from the
plan, filter and deduplicate the results, score them, and persist the
relevant rows.

Example:
  jobsift search --plan plan.yaml
  jobsift search --plan plan.yaml --dry-run`,
	RunE: runSearch,
}

var (
	searchPlanPath string
	searchDryRun   bool
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&searchPlanPath, "plan", "p", "", "Path to search plan (required)")
	searchCmd.Flags().BoolVar(&searchDryRun, "dry-run", false, "Validate plan and show tasks without executing")

	_ = searchCmd.MarkFlagRequired("plan")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if searchDryRun {
		p, err := plan.Load(searchPlanPath)
		if err != nil {
			observability.CLILogger.Error("Failed to load plan",
				zap.String("path", searchPlanPath),
				zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid plan", err)
		}
		return showSearchPlan(p)
	}

	r, cleanup, err := newRunner(ctx, settings, searchPlanPath)
	if err != nil {
		observability.CLILogger.Error("Failed to build pipeline", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Failed to build pipeline", err)
	}
	defer cleanup()

	summary, err := r.runOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Search cancelled")
			return exitError(foundry.ExitSignalInt, "Search cancelled", err)
		}
		observability.CLILogger.Error("Search failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Search failed", err)
	}

	fmt.Println("=== Search Summary ===")
	fmt.Printf("Tasks:     %d (%d ok, %d failed)\n",
		summary.TotalTasks, summary.SuccessfulTasks, summary.FailedTasks)
	fmt.Printf("Fetched:   %d rows\n", summary.TotalJobsFound)
	fmt.Printf("Unique:    %d\n", summary.UniqueJobs)
	fmt.Printf("Relevant:  %d\n", summary.RelevantJobs)
	fmt.Printf("New:       %d\n", summary.NewJobs)
	fmt.Printf("Duration:  %s\n", summary.Duration().Round(summaryRounding))
	return nil
}

func showSearchPlan(p *plan.Plan) error {
	fmt.Println("=== Search Plan (dry-run) ===")
	fmt.Println()
	fmt.Println("Queries:")
	for _, q := range p.AllQueries() {
		fmt.Printf("  - %s\n", q)
	}
	fmt.Println("Locations:")
	for _, loc := range p.Locations {
		fmt.Printf("  - %s\n", loc)
	}
	fmt.Printf("Sites:       %v\n", p.Sites)
	fmt.Printf("Tasks:       %d\n", len(p.AllQueries())*len(p.Locations))
	fmt.Println()
	fmt.Printf("Per task:    up to %d results, max %dh old\n",
		p.Fetch.ResultsWanted, p.Fetch.HoursOld)
	fmt.Printf("Filtering:   query terms=%v location=%v (similarity >= %d)\n",
		p.Filter.QueryTermsEnabled(), p.Filter.LocationEnabled(), p.Filter.MinSimilarity)
	fmt.Printf("Scoring:     %d categories, threshold %d\n",
		len(p.Scoring.Categories), p.Scoring.Threshold)
	fmt.Println()
	fmt.Println("Plan validated successfully. Remove --dry-run to execute.")
	return nil
}

// Package cmd wires the jobsift CLI: plan-driven search runs, the
// recurring scheduler, stored-corpus analysis, and database upkeep.
package cmd

import (
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/config"
	"github.com/jobsift/jobsift/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "jobsift",
	Short: "Plan-driven job search aggregator",
	Long: `jobsift runs keyword searches against job boards, deduplicates and
scores the results, and keeps a local history of everything it has seen.

Searches are described in a plan file (what to search for) and tuned by
a config file (workers, throttling, retries, scheduling).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionInfo is injected at build time via SetVersionInfo.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	rootConfigPath string
	rootLogLevel   string
	rootLogFile    string

	// settings is populated by the persistent pre-run and shared by
	// every subcommand.
	settings *config.Settings
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "Path to config file (default: jobsift.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Override log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&rootLogFile, "log-file", "", "Override log file path")

	rootCmd.PersistentPreRunE = setupRuntime
}

func setupRuntime(cmd *cobra.Command, args []string) error {
	s, err := config.Load(rootConfigPath)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	settings = s

	if rootLogLevel != "" {
		settings.Logging.Level = rootLogLevel
	}
	if rootLogFile != "" {
		settings.Logging.File = rootLogFile
	}

	if _, err := observability.Setup(observability.Options{
		Level:      settings.Logging.Level,
		File:       settings.Logging.File,
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
		MaxAgeDays: settings.Logging.MaxAgeDays,
	}); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	observability.CLILogger.Debug("runtime configured",
		zap.String("config", rootConfigPath),
		zap.Int("workers", settings.Workers),
		zap.String("db_path", settings.Database.Path))
	return nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	defer observability.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return exitCodeFor(err)
	}
	return 0
}

// exitCodeError carries a process exit code alongside the cause.
type exitCodeError struct {
	code int
	msg  string
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.err)
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, msg: message, err: err}
}

func exitCodeFor(err error) int {
	var coded *exitCodeError
	if errors.As(err, &coded) {
		return coded.code
	}
	return 1
}

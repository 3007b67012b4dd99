package cmd

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/codepair/internal/config"
	"github.com/Iron-Ham/codepair/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View codepair logs",
	Long: `View and filter the structured log written by serve and run.

Examples:
  # Show the last 50 entries
  codepair logs

  # Show everything from one run (full or short run ID)
  codepair logs --run 3f2a9c1e -n 0

  # Warnings and errors from the last hour
  codepair logs --level warn --since 1h

  # Reviewer activity during coding turns
  codepair logs --stage reviewing_turn --worker w2`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsRunID  string
	logsTail   int
	logsLevel  string
	logsSince  string
	logsGrep   string
	logsStage  string
	logsWorker string
	logsFormat string
	logsDir    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVarP(&logsRunID, "run", "r", "", "Run ID or prefix")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter messages containing text")
	logsCmd.Flags().StringVar(&logsStage, "stage", "", "Filter by pipeline stage")
	logsCmd.Flags().StringVar(&logsWorker, "worker", "", "Filter by worker (w1/w2)")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format (text/json)")
	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Log directory (default from logging.dir)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	filter, err := buildLogFilter(time.Now())
	if err != nil {
		return err
	}

	dir := logsDir
	if dir == "" {
		logCfg := config.Get().Logging
		dir = logCfg.ResolveDir()
	}
	if dir == "" {
		return fmt.Errorf("logging to stderr is configured; pass --dir to read a log directory")
	}

	entries, err := logging.ReadEntries(dir)
	if err != nil {
		return fmt.Errorf("failed to read logs in %s: %w", dir, err)
	}
	entries = logging.FilterEntries(entries, filter)
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No matching log entries")
		return nil
	}
	return logging.WriteEntries(cmd.OutOrStdout(), entries, logsFormat)
}

func buildLogFilter(now time.Time) (logging.LogFilter, error) {
	filter := logging.LogFilter{
		RunID:           logsRunID,
		Stage:           logsStage,
		Worker:          logsWorker,
		MessageContains: logsGrep,
	}

	if logsLevel != "" {
		if !slices.Contains(logging.ValidLevels(), strings.ToUpper(logsLevel)) {
			return filter, fmt.Errorf("invalid level %q: must be one of debug, info, warn, error", logsLevel)
		}
		filter.Level = logging.ParseLevel(logsLevel)
	}

	if logsSince != "" {
		d, err := time.ParseDuration(logsSince)
		if err != nil {
			return filter, fmt.Errorf("invalid duration %q: %w", logsSince, err)
		}
		filter.Since = now.Add(-d)
	}
	return filter, nil
}

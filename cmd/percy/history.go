package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tmobile/percy-cake-sub002/pkg/cli"
	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/history"
)

var historyFlags struct {
	db     string
	limit  int
	format string
	keep   int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded hydration runs",
	Long: `Inspect the run history database.

Runs are recorded when history.enabled is set in the configuration or when
percy hydrate is given --compare-previous.

Examples:
  # List the ten most recent runs
  percy history list --limit 10

  # Diff the latest run against the one before it
  percy history diff

  # Diff two specific runs
  percy history diff 3f6c... 9a1d...

  # Keep only the five newest runs
  percy history prune --keep 5`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyDiffCmd = &cobra.Command{
	Use:   "diff [FROM_RUN TO_RUN]",
	Short: "Compare the outputs of two runs",
	Long: `Compare the outputs of two runs per application and environment.

Without arguments the latest run is compared with the run before it.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("accepts 0 or 2 run IDs, received %d", len(args))
		}
		return nil
	},
	RunE: runHistoryDiff,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyDiffCmd, historyPruneCmd)

	historyCmd.PersistentFlags().StringVar(&historyFlags.db, "db", "", "history database path (overrides history.path)")
	historyListCmd.Flags().IntVar(&historyFlags.limit, "limit", 20, "maximum runs to list (0 for all)")
	historyListCmd.Flags().StringVar(&historyFlags.format, "format", "text", "output format: text, json")
	historyPruneCmd.Flags().IntVar(&historyFlags.keep, "keep", 0, "number of runs to keep")
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if historyFlags.db != "" {
			cfg.History.Path = historyFlags.db
		}
	})
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History, logger)
}

// runSummary is the printable form of a recorded run.
type runSummary struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
	Status       string    `json:"status"`
	Applications int       `json:"applications"`
	Failures     int       `json:"failures"`
	InputDir     string    `json:"input_dir"`
	OutputDir    string    `json:"output_dir"`
}

type runList []runSummary

func (l runList) String() string {
	if len(l) == 0 {
		return "No runs recorded."
	}
	s := fmt.Sprintf("%-36s  %-19s  %-9s  %5s  %6s", "RUN", "STARTED", "STATUS", "APPS", "FAILED")
	for _, r := range l {
		s += fmt.Sprintf("\n%-36s  %-19s  %-9s  %5d  %6d",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Status, r.Applications, r.Failures)
	}
	return s
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.format)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	hs, err := openHistory(cmd)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	defer hs.Close()

	runs, err := hs.ListRuns(commandContext(cmd), historyFlags.limit)
	if err != nil {
		return cli.NewCommandError("history list", err)
	}
	list := make(runList, 0, len(runs))
	for _, r := range runs {
		list = append(list, runSummary{
			ID:           r.ID,
			StartedAt:    r.StartedAt,
			DurationMS:   r.Duration.Milliseconds(),
			Status:       r.Status,
			Applications: r.Applications,
			Failures:     r.Failures,
			InputDir:     r.InputDir,
			OutputDir:    r.OutputDir,
		})
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), list)
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	hs, err := openHistory(cmd)
	if err != nil {
		return cli.NewCommandError("history diff", err)
	}
	defer hs.Close()

	ctx := commandContext(cmd)
	var fromID, toID string
	if len(args) == 2 {
		fromID, toID = args[0], args[1]
	} else {
		latest, err := hs.Latest(ctx)
		if err != nil {
			return cli.NewCommandError("history diff", err)
		}
		prev, err := hs.PreviousRun(ctx, latest.ID)
		if err != nil {
			return cli.NewCommandError("history diff", err)
		}
		fromID, toID = prev.ID, latest.ID
	}

	diffs, err := hs.Diff(ctx, fromID, toID)
	if err != nil {
		return cli.NewCommandError("history diff", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Changes from run %s to %s:\n", fromID, toID)
	return writeOutputDiffs(out, diffs)
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if historyFlags.keep < 0 {
		return cli.NewCommandError("history prune", fmt.Errorf("--keep must not be negative"))
	}
	hs, err := openHistory(cmd)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	defer hs.Close()

	n, err := hs.Prune(commandContext(cmd), historyFlags.keep)
	if err != nil {
		return cli.NewCommandError("history prune", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs.\n", n)
	return err
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tmobile/percy-cake-sub002/pkg/cli"
	"github.com/tmobile/percy-cake-sub002/pkg/compare"
	"github.com/tmobile/percy-cake-sub002/pkg/config"
	"github.com/tmobile/percy-cake-sub002/pkg/store"
	"github.com/tmobile/percy-cake-sub002/pkg/telemetry/metrics"
)

var compareFlags struct {
	format string
}

var compareCmd = &cobra.Command{
	Use:   "compare FILE_A FILE_B",
	Short: "Compare two configuration documents",
	Long: `Compare two YAML or JSON documents and list what B adds, removes or changes
relative to A.

Mapping key order is ignored; sequence order is not. Entries are listed depth
first in the key order of A, followed by keys only present in B.

Examples:
  # Text output
  percy compare build/dev/api.json build/prod/api.json

  # Machine-readable entries
  percy compare a.yaml b.yaml --format json

  # Unified diff of the key-sorted JSON renderings
  percy compare a.yaml b.yaml --format unified`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().StringVar(&compareFlags.format, "format", "text", "output format: text, json, unified")
}

// compareMetrics returns the collector comparisons are counted on.
var compareMetrics = func(cfg *config.Config) *metrics.Collector {
	return metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
}

func runCompare(cmd *cobra.Command, args []string) error {
	format, err := compare.ParseFormat(compareFlags.format)
	if err != nil {
		return cli.NewCommandError("compare", err)
	}
	cfg, err := loadConfig(nil)
	if err != nil {
		return cli.NewCommandError("compare", err)
	}
	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return cli.NewCommandError("compare", err)
	}

	st := store.NewFileStore(cfg.Hydration.MaxFileSize, logger)
	result, err := compare.CompareFiles(st, args[0], args[1])
	if err != nil {
		return cli.NewCommandError("compare", err)
	}

	counts := compare.Counts(result.Entries)
	compareMetrics(cfg).RecordDiff(counts)
	logger.Debug("documents compared",
		"a", args[0],
		"b", args[1],
		"added", counts[string(compare.Added)],
		"removed", counts[string(compare.Removed)],
		"changed", counts[string(compare.Changed)],
	)

	out := cmd.OutOrStdout()
	if len(result.Entries) == 0 && format == compare.FormatText {
		_, err := fmt.Fprintln(out, "No differences.")
		return err
	}
	if err := result.Write(out, format); err != nil {
		return cli.NewCommandError("compare", err)
	}
	return nil
}

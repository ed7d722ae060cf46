/*
Package cli provides command-line helpers shared by the percy commands.

Output Formatting:

Command results are printed as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, cli.NewReportSummary(report)); err != nil {
		return err
	}

Progress Reporting:

SimpleProgress draws a bar on stderr as applications finish. Pass it to the
hydrator:

	h, err := hydrate.New(&cfg.Hydration, st,
		hydrate.WithProgress(cli.NewProgressReporter(os.Stderr)))

Exit Codes:

ExitCode maps a command error to the process exit code. Hydration runs that
finished with failed or partial applications exit with ExitIncomplete.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

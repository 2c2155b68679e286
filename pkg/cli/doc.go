/*
Package cli provides command-line helpers for the switchboard command.

Output Formatting:

Results that implement Tabular render as aligned columns in text mode and
as rows in CSV mode. JSON mode encodes the value itself:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, providerList); err != nil {
		return err
	}

Progress Reporting:

The ask command reports settled providers on stderr:

	progress := cli.NewProgressReporter(os.Stderr, "Providers")
	progress.Start(len(engines))
	progress.Settle(ev.Provider, ev.Type == stream.EventFailed)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes; ConfigError exits with
ExitConfig and a CommandError carries its own code.
*/
package cli

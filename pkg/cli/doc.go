/*
Package cli provides command-line helpers shared by the lazyproxy commands.

Output Formatting:

Command results can be printed as aligned text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	table := cli.Table{Headers: []string{"SERVICE", "STATE"}, Rows: rows}
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Errors and Exit Codes:

Configuration problems are reported as ConfigError and exit with status 2;
every other failure exits with status 1 (see ExitCode).

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

// Package commands implements the budgetsheet command line.
package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/budgetsheet/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
// Run without a subcommand it converts the spreadsheet for one year.
func NewRootCommand() *cobra.Command {
	var opts convertOptions

	rootCmd := &cobra.Command{
		Use:     "budgetsheet <year>",
		Short:   "Convert an annual budget spreadsheet into JSON transactions",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		Args:    cobra.ExactArgs(1),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			return runConvert(cmd.OutOrStdout(), cmd.ErrOrStderr(), year, opts)
		},
	}

	f := rootCmd.Flags()
	f.StringVar(&opts.base, "base", ".", "workspace directory holding input/, output/ and logs/")
	f.StringVar(&opts.input, "input", "", "spreadsheet path (default <base>/input/<year>.xlsx)")
	f.StringVar(&opts.config, "config", "", "config path (default <base>/input/<year>.json)")
	f.StringVar(&opts.output, "output", "", "output path (default <base>/output/<year>.<format>)")
	f.StringVar(&opts.format, "format", "json", "output format: json or csv")
	f.BoolVar(&opts.debug, "debug", false, "log layout detection and per-sheet totals")
	f.BoolVar(&opts.logJSON, "log-json", false, "write logs to stderr as JSON lines")
	f.BoolVar(&opts.commit, "commit", false, "commit the output and run log when <base> is a git repository")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 || year > 9999 {
		return 0, exitErrorf(ExitUsage, "invalid year %q", s)
	}
	return year, nil
}

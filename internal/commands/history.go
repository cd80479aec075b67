package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/budgetsheet/internal/runlog"
)

func newHistoryCommand() *cobra.Command {
	var base string
	var year int
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past conversion runs from the run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.OutOrStdout(), base, year, limit)
		},
	}

	cmd.Flags().StringVar(&base, "base", ".", "workspace directory holding logs/")
	cmd.Flags().IntVar(&year, "year", 0, "only show runs for this year")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many of the latest runs")

	return cmd
}

func runHistory(out io.Writer, base string, year, limit int) error {
	entries, err := runlog.Read(base)
	if err != nil {
		return err
	}

	var shown []runlog.Entry
	for _, e := range entries {
		if year == 0 || e.Year == year {
			shown = append(shown, e)
		}
	}
	if limit > 0 && len(shown) > limit {
		shown = shown[len(shown)-limit:]
	}
	if len(shown) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	for _, e := range shown {
		line := fmt.Sprintf("%s  %d  %-16s  %4d records  sheets=%s  run=%s",
			e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), e.Year, e.Status, e.Records,
			strings.Join(e.Sheets, ";"), e.RunID)
		if e.Details != "" {
			line += "  " + e.Details
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

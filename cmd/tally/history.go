package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bamsammich/tally/internal/ledger"
	"github.com/bamsammich/tally/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history [dir]",
	Short: "List recorded runs, newest first",
	Long: `List scans and saved reports from the history ledger, newest first.
With a directory argument, only runs over that directory are shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "show at most N runs (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit") //nolint:errcheck // flag name is hardcoded

	var path string
	if len(args) == 1 {
		path = absPath(args[0])
	}

	l, err := ledger.Open(ledgerPath(cmd))
	if err != nil {
		return err
	}
	defer l.Close()

	runs, err := l.Runs(path, limit)
	if err != nil {
		return err
	}

	ui.WriteRuns(os.Stdout, runs)
	return nil
}

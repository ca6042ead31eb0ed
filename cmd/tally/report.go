package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/tally/internal/ledger"
	"github.com/bamsammich/tally/internal/merge"
	"github.com/bamsammich/tally/internal/snapshot"
	"github.com/bamsammich/tally/internal/stats"
	"github.com/bamsammich/tally/internal/summary"
	"github.com/bamsammich/tally/internal/ui"
)

var reportCmd = &cobra.Command{
	Use:   "report <dir>",
	Short: "Reconcile stored summaries against the directory and report totals",
	Long: `Fold every stored summary artifact in the directory, oldest first, then
reconcile the fold against a live scan. Entries that changed since their
last summary are re-counted; entries that have left the directory are
trimmed to zero while what was collected for them is preserved.

The collected total counts every byte a summary ever recorded, re-sent
files included, so it can exceed what the directory holds today.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntP("workers", "n", 0, "parallel walk workers (default: min(NumCPU, 8))")
	reportCmd.Flags().
		StringArray("ignore", nil, "drop NAME outright when it has left the directory (repeatable)")
	reportCmd.Flags().Bool("json", false, "print totals as JSON")
	reportCmd.Flags().String("html", "", "write an HTML tree report to FILE")
	reportCmd.Flags().Bool("save", false, "append the run to the history ledger")
}

func runReport(cmd *cobra.Command, args []string) error {
	dir := args[0]

	workers, _ := cmd.Flags().GetInt("workers")       //nolint:errcheck // flag name is hardcoded
	ignore, _ := cmd.Flags().GetStringArray("ignore") //nolint:errcheck // flag name is hardcoded
	jsonOut, _ := cmd.Flags().GetBool("json")         //nolint:errcheck // flag name is hardcoded
	htmlPath, _ := cmd.Flags().GetString("html")      //nolint:errcheck // flag name is hardcoded
	save, _ := cmd.Flags().GetBool("save")            //nolint:errcheck // flag name is hardcoded
	quiet, _ := cmd.Flags().GetBool("quiet")          //nolint:errcheck // flag name is hardcoded

	if !cmd.Flags().Changed("workers") && cfg.Defaults.Workers != nil {
		workers = *cfg.Defaults.Workers
	}
	if !cmd.Flags().Changed("ignore") && len(cfg.Report.Ignore) > 0 {
		ignore = cfg.Report.Ignore
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	started := time.Now()

	progress := ui.StartProgress(os.Stderr, !quiet && !jsonOut && ui.IsTTY(os.Stderr.Fd()),
		collector, func() int { return ui.TermWidth(os.Stderr.Fd()) })
	result, err := merge.Summaries(ctx, dir, merge.Options{
		Workers: workers,
		Stats:   collector,
		Ignore:  ignore,
	})
	progress.Stop()
	if err != nil {
		return err
	}

	totals := merge.TotalsOf(result)
	slog.Debug("reconciled",
		"dir", dir,
		"artifacts", len(result.Artifacts),
		"stats", collector.Snapshot().String(),
	)

	switch {
	case jsonOut:
		if err := writeTotalsJSON(os.Stdout, dir, totals, len(result.Artifacts)); err != nil {
			return err
		}
	case !quiet:
		ui.WriteTotals(os.Stdout, dir, totals, len(result.Artifacts))
	}

	if htmlPath != "" {
		if err := writeHTMLFile(htmlPath, dir, result); err != nil {
			return err
		}
		slog.Info("wrote HTML report", "path", htmlPath)
	}

	if save {
		payload, err := summary.Marshal(result.Root)
		if err != nil {
			return err
		}
		recordRun(cmd, ledger.Run{
			Kind:        ledger.KindReport,
			Path:        absPath(dir),
			Started:     started,
			Duration:    time.Since(started),
			Fingerprint: snapshot.Fingerprint(payload),
			Original:    totals.OriginalBytes,
			Trimmed:     totals.UploadedBytes,
			Collected:   totals.CollectedBytes,
		})
	}

	return nil
}

func writeTotalsJSON(w io.Writer, path string, totals merge.Totals, summaries int) error {
	out := struct {
		Path           string `json:"path"`
		Summaries      int    `json:"summaries"`
		CollectedBytes uint64 `json:"collected_bytes"`
		OriginalBytes  uint64 `json:"original_bytes"`
		UploadedBytes  uint64 `json:"uploaded_bytes"`
		Throttled      bool   `json:"throttled"`
	}{path, summaries, totals.CollectedBytes, totals.OriginalBytes, totals.UploadedBytes, totals.Throttled}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode totals: %w", err)
	}
	return nil
}

func writeHTMLFile(path, dir string, result merge.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := ui.WriteHTML(f, dir, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/tally/internal/ledger"
	"github.com/bamsammich/tally/internal/merge"
	"github.com/bamsammich/tally/internal/stats"
)

// WriteTotals renders the reconciliation totals for one directory.
func WriteTotals(w io.Writer, path string, totals merge.Totals, summaries int) {
	throttled := "no"
	if totals.Throttled {
		throttled = "yes"
	}
	fmt.Fprintf(w, "path       %s\n", path)
	fmt.Fprintf(w, "summaries  %s\n", FormatCount(int64(summaries)))
	fmt.Fprintf(w, "collected  %s\n", FormatSize(totals.CollectedBytes))
	fmt.Fprintf(w, "original   %s\n", FormatSize(totals.OriginalBytes))
	fmt.Fprintf(w, "uploaded   %s\n", FormatSize(totals.UploadedBytes))
	fmt.Fprintf(w, "throttled  %s\n", throttled)
}

// WriteScanResult renders the outcome of one snapshot scan.
func WriteScanResult(w io.Writer, artifact string, size uint64, fingerprint string, snap stats.Snapshot) {
	fmt.Fprintf(w, "artifact %s  size %s  fingerprint %s\n",
		artifact, FormatSize(size), fingerprint)
	fmt.Fprintf(w, "scanned files %s  dirs %s  links %s  bytes %s  time %s\n",
		FormatCount(snap.FilesScanned),
		FormatCount(snap.DirsScanned),
		FormatCount(snap.LinksSkipped),
		FormatBytes(snap.BytesScanned),
		FormatDuration(snap.Elapsed))
}

// WriteRuns renders recorded runs as a fixed-width table, newest first.
func WriteRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return
	}
	fmt.Fprintf(w, "%-19s  %-6s  %-8s  %10s  %10s  %10s  %s\n",
		"STARTED", "KIND", "FPRINT", "COLLECTED", "ORIGINAL", "UPLOADED", "PATH")
	for _, run := range runs {
		fprint := run.Fingerprint
		if fprint == "" {
			fprint = "-"
		}
		fmt.Fprintf(w, "%-19s  %-6s  %-8s  %10s  %10s  %10s  %s\n",
			run.Started.Format("2006-01-02 15:04:05"),
			run.Kind,
			fprint,
			FormatSize(run.Collected),
			FormatSize(run.Original),
			FormatSize(run.Trimmed),
			run.Path)
	}
}

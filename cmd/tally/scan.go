package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bamsammich/tally/internal/ledger"
	"github.com/bamsammich/tally/internal/snapshot"
	"github.com/bamsammich/tally/internal/stats"
	"github.com/bamsammich/tally/internal/summary"
	"github.com/bamsammich/tally/internal/ui"
)

// sizeFlag is a pflag.Value that parses human-readable byte counts as
// they are set, so a bad --min-free fails at flag-parse time.
type sizeFlag struct {
	bytes int64
}

var _ pflag.Value = (*sizeFlag)(nil)

func (*sizeFlag) String() string { return "" }
func (*sizeFlag) Type() string   { return "size" }

func (f *sizeFlag) Set(val string) error {
	n, err := stats.ParseSize(val)
	if err != nil {
		return err
	}
	f.bytes = n
	return nil
}

var minFreeFlag sizeFlag

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Snapshot a directory into a stored summary artifact",
	Long: `Walk the directory and store a summary of every file and folder size as
a dir_summary_N.json artifact inside the directory itself. Later reports
fold these artifacts in the order they were written.

Symlinks pointing back into the directory are recorded as empty folders
so nothing is counted twice; symlinks leaving the directory are followed.

The scan refuses to write the artifact when the filesystem would drop
below the free-space floor, and exits with status 3 so wrapper scripts
can tell the condition apart from scan failures.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntP("workers", "n", 0, "parallel walk workers (default: min(NumCPU, 8))")
	scanCmd.Flags().Bool("compress", false, "zstd-compress the artifact (.json.zst)")
	scanCmd.Flags().Var(&minFreeFlag, "min-free", "free space to keep on the filesystem (default 10M)")
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := args[0]

	workers, _ := cmd.Flags().GetInt("workers")    //nolint:errcheck // flag name is hardcoded
	compress, _ := cmd.Flags().GetBool("compress") //nolint:errcheck // flag name is hardcoded
	quiet, _ := cmd.Flags().GetBool("quiet")       //nolint:errcheck // flag name is hardcoded

	if !cmd.Flags().Changed("workers") && cfg.Defaults.Workers != nil {
		workers = *cfg.Defaults.Workers
	}
	if !cmd.Flags().Changed("compress") && cfg.Scan.Compress != nil {
		compress = *cfg.Scan.Compress
	}

	minFree := uint64(minFreeFlag.bytes)
	if !cmd.Flags().Changed("min-free") && cfg.Scan.MinFree != nil {
		n, err := stats.ParseSize(*cfg.Scan.MinFree)
		if err != nil {
			return fmt.Errorf("invalid min_free in config: %w", err)
		}
		minFree = uint64(n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := stats.NewCollector()
	started := time.Now()

	progress := ui.StartProgress(os.Stderr, !quiet && ui.IsTTY(os.Stderr.Fd()), collector,
		func() int { return ui.TermWidth(os.Stderr.Fd()) })
	root, err := snapshot.Build(ctx, dir, snapshot.Options{Workers: workers, Stats: collector})
	progress.Stop()
	if err != nil {
		return err
	}

	payload, err := summary.Marshal(root)
	if err != nil {
		return err
	}
	fprint := snapshot.Fingerprint(payload)

	path, err := snapshot.WriteNew(dir, root, snapshot.WriteOptions{
		Compress: compress,
		MinFree:  minFree,
	})
	if err != nil {
		if errors.Is(err, snapshot.ErrLowDiskSpace) {
			slog.Error("refusing to write artifact", "dir", dir, "error", err)
			return &exitError{code: 3}
		}
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}

	snap := collector.Snapshot()
	if !quiet {
		ui.WriteScanResult(os.Stdout, path, uint64(info.Size()), fprint, snap)
	}
	slog.Debug("scan complete",
		"dir", dir,
		"artifact", path,
		"fingerprint", fprint,
		"stats", snap.String(),
	)

	recordRun(cmd, ledger.Run{
		Kind:        ledger.KindScan,
		Path:        absPath(dir),
		Started:     started,
		Duration:    time.Since(started),
		Artifact:    path,
		Fingerprint: fprint,
		Original:    root.Original,
		Trimmed:     root.TrimmedSize(),
		Collected:   root.CollectedSize(),
	})

	return nil
}

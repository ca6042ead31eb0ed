package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bamsammich/tally/internal/config"
	"github.com/bamsammich/tally/internal/ledger"
	"github.com/bamsammich/tally/internal/ui"
)

var version = "dev"

// cfg is the optional config file, loaded once before any command runs.
var cfg config.Config

// logSink is the --log file handle. It stays open for the lifetime of
// the command so every subcommand logs into it.
var logSink *os.File

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if logSink != nil {
		logSink.Close()
	}
	if err != nil {
		if exitErr, ok := err.(*exitError); ok {
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "Directory size accounting from collected summaries",
		Long: `tally tracks the size history of a periodically collected directory.

Every scan stores a summary artifact describing the directory tree inside
the directory itself. A report folds the stored summaries in collection
order and reconciles them against the live directory, yielding the total
bytes collected over the directory's lifetime alongside its original and
trimmed sizes.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().String("log", "", "write structured JSON log to FILE")
	rootCmd.PersistentFlags().String("log-format", "text", "stderr log format (text or json)")
	rootCmd.PersistentFlags().
		String("ledger", "", "run history database (default: $XDG_STATE_HOME/tally/history.db)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(docsCmd)

	return rootCmd
}

// setup loads the optional config file and installs the default logger.
// It runs before every subcommand.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}
	cfg = loaded

	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")        //nolint:errcheck // flag name is hardcoded
	quiet, _ := flags.GetBool("quiet")            //nolint:errcheck // flag name is hardcoded
	logFile, _ := flags.GetString("log")          //nolint:errcheck // flag name is hardcoded
	logFormat, _ := flags.GetString("log-format") //nolint:errcheck // flag name is hardcoded
	if !flags.Changed("log-format") && cfg.Defaults.LogFormat != nil {
		logFormat = *cfg.Defaults.LogFormat
	}

	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	} else if !quiet {
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	switch logFormat {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", logFormat)
	}

	if logFile != "" {
		lf, lfErr := os.Create(logFile)
		if lfErr != nil {
			return fmt.Errorf("open log file: %w", lfErr)
		}
		logSink = lf
		fileHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{Level: slog.LevelDebug})
		handler = ui.NewMultiHandler(handler, fileHandler)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// ledgerPath resolves the run-history database location from the flag,
// the config file, then the XDG default.
func ledgerPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("ledger") //nolint:errcheck // flag name is hardcoded
	if path == "" && cfg.Defaults.Ledger != nil {
		path = *cfg.Defaults.Ledger
	}
	if path == "" {
		path = ledger.DefaultPath()
	}
	return path
}

// recordRun appends a run to the history ledger. Failing to record is
// never fatal to the command that did the work.
func recordRun(cmd *cobra.Command, run ledger.Run) {
	l, err := ledger.Open(ledgerPath(cmd))
	if err != nil {
		slog.Warn("run history unavailable", "error", err)
		return
	}
	defer l.Close()
	if err := l.Record(run); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

// absPath resolves p so ledger rows match regardless of how the
// directory was spelled on the command line.
func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// Package ledger keeps a local SQLite history of finished runs.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run kinds recorded in the ledger.
const (
	KindScan   = "scan"
	KindReport = "report"
)

// Run is one recorded invocation.
type Run struct {
	ID          string
	Kind        string
	Path        string
	Started     time.Time
	Duration    time.Duration
	Artifact    string
	Fingerprint string
	Original    uint64
	Trimmed     uint64
	Collected   uint64
}

// Ledger is a SQLite-backed run history.
type Ledger struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the history database location:
// $XDG_STATE_HOME/tally/history.db, or ~/.local/state/tally/history.db.
func DefaultPath() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tally", "history.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tally-history.db")
	}
	return filepath.Join(home, ".local", "state", "tally", "history.db")
}

// Open opens (or creates) the ledger at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	l := &Ledger{db: db, path: path}
	if err := l.init(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) init() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			path        TEXT NOT NULL,
			started     INTEGER NOT NULL,
			duration    INTEGER NOT NULL,
			artifact    TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			original    INTEGER NOT NULL,
			trimmed     INTEGER NOT NULL,
			collected   INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Record stores one run. A missing ID is filled in; a zero start time
// becomes the current time.
func (l *Ledger) Record(run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}

	_, err := l.db.Exec(`
		INSERT INTO runs (id, kind, path, started, duration, artifact, fingerprint, original, trimmed, collected)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Path, run.Started.UnixNano(), int64(run.Duration),
		run.Artifact, run.Fingerprint,
		int64(run.Original), int64(run.Trimmed), int64(run.Collected),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns recorded runs, newest first. A non-empty path restricts
// the result to runs over that path; a non-positive limit returns
// everything.
func (l *Ledger) Runs(path string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, kind, path, started, duration, artifact, fingerprint, original, trimmed, collected
		FROM runs`
	args := []any{}
	if path != "" {
		query += ` WHERE path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY started DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                          Run
			started, duration            int64
			original, trimmed, collected int64
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.Path, &started, &duration,
			&run.Artifact, &run.Fingerprint, &original, &trimmed, &collected); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Started = time.Unix(0, started)
		run.Duration = time.Duration(duration)
		run.Original = uint64(original)
		run.Trimmed = uint64(trimmed)
		run.Collected = uint64(collected)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (l *Ledger) Close() error { return l.db.Close() }

// Path returns the database file location.
func (l *Ledger) Path() string { return l.path }

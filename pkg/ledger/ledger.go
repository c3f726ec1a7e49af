// Package ledger keeps a SQLite record of every dispatched training fold.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fformation/dmonkit/pkg/trainer"
)

const schema = `
CREATE TABLE IF NOT EXISTS fold_runs (
	id             TEXT PRIMARY KEY,
	fold           INTEGER NOT NULL,
	experiment_dir TEXT NOT NULL,
	dataset_path   TEXT NOT NULL,
	command        TEXT NOT NULL,
	started_at     DATETIME NOT NULL,
	duration_ms    INTEGER NOT NULL,
	error          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_fold_runs_experiment ON fold_runs(experiment_dir, started_at);
`

// Entry is a stored fold run
type Entry struct {
	ID            string
	Fold          int
	ExperimentDir string
	DatasetPath   string
	Command       string
	StartedAt     time.Time
	Duration      time.Duration
	Error         string
}

// Failed reports whether the trainer exited with an error
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Ledger is a SQLite-backed run log
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores a dispatched fold. It implements trainer.Recorder.
func (l *Ledger) Record(ctx context.Context, run trainer.FoldRun) error {
	var errText string
	if run.Err != nil {
		errText = run.Err.Error()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO fold_runs (id, fold, experiment_dir, dataset_path, command, started_at, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), run.Fold, run.ExperimentDir, run.DatasetPath, run.Command.String(),
		run.Started.UTC(), run.Duration.Milliseconds(), errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record fold %d: %w", run.Fold, err)
	}
	return nil
}

// List returns the stored runs, oldest first. An empty experimentDir lists everything.
func (l *Ledger) List(ctx context.Context, experimentDir string) ([]Entry, error) {
	query := `SELECT id, fold, experiment_dir, dataset_path, command, started_at, duration_ms, error
	          FROM fold_runs`
	var args []interface{}
	if experimentDir != "" {
		query += ` WHERE experiment_dir = ?`
		args = append(args, experimentDir)
	}
	query += ` ORDER BY started_at, fold`

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Fold, &e.ExperimentDir, &e.DatasetPath, &e.Command, &e.StartedAt, &ms, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ trainer.Recorder = (*Ledger)(nil)

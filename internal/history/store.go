package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vodmill/internal/config"
	"vodmill/internal/pipeline"
)

// Entry is one persisted job outcome.
type Entry struct {
	ID           int64
	JobID        string
	FileName     string
	Outcome      string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Store persists finished-job records in SQLite. It is the audit trail
// behind the vodmill history command; the live queue itself is memory only.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS job_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    file_name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    error_message TEXT NOT NULL DEFAULT '',
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_job_history_finished_at ON job_history (finished_at DESC);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply history schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record inserts one finished-job record. It satisfies pipeline.Recorder.
func (s *Store) Record(ctx context.Context, rec pipeline.JobRecord) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO job_history (job_id, file_name, outcome, error_message, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.JobID,
		rec.FileName,
		rec.Outcome,
		rec.ErrorMessage,
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job record: %w", err)
	}
	return nil
}

// Recent returns the most recently finished jobs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, job_id, file_name, outcome, error_message, started_at, finished_at
         FROM job_history ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query job history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			startedAt  string
			finishedAt string
		)
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.FileName, &entry.Outcome, &entry.ErrorMessage, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		if entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
		}
		if entry.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finishedAt, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job history: %w", err)
	}
	return entries, nil
}

// Summary counts recorded jobs per outcome.
func (s *Store) Summary(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM job_history GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("query history summary: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		counts[outcome] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history summary: %w", err)
	}
	return counts, nil
}

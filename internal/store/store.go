// Package store handles SQLite persistence.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Timestamps are stored as fixed-width UTC text so that string order
// matches time order in range queries.
const (
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

// Store wraps SQLite access for documents, sessions and goals.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			path TEXT NOT NULL,
			total_pages INTEGER NOT NULL,
			current_page INTEGER NOT NULL DEFAULT 1,
			reading_speed REAL,
			total_minutes REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS reading_sessions (
			id INTEGER PRIMARY KEY,
			document_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			duration_min REAL,
			pages_read INTEGER NOT NULL DEFAULT 0,
			start_page INTEGER NOT NULL DEFAULT 0,
			end_page INTEGER NOT NULL DEFAULT 0,
			session_type TEXT NOT NULL DEFAULT 'regular'
		);`,
		`CREATE TABLE IF NOT EXISTS goals (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			target_date TEXT NOT NULL,
			document_ids TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reading_sessions_started_at ON reading_sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reading_sessions_document ON reading_sessions(document_id, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reading_sessions_type ON reading_sessions(session_type);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

var nowUTC = func() time.Time { return time.Now().UTC() }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(timeLayout, value)
}

func closeRows(rows *sql.Rows) {
	if cerr := rows.Close(); cerr != nil {
		// Best-effort rows close.
		_ = cerr
	}
}

func rollback(tx *sql.Tx) {
	if rerr := tx.Rollback(); rerr != nil {
		// Best-effort rollback; a committed tx reports ErrTxDone here.
		_ = rerr
	}
}

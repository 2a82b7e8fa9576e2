// Package sqlite contains a SQLite implementation of the time entry repository
// for local development and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Open opens (or creates) a SQLite database at the given path and applies the schema.
// Writers take the lock at BEGIN so read-modify-write transactions never deadlock on upgrade.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the time_entries table and its indexes if they do not exist.
// Timestamps are stored as Unix microseconds.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS time_entries (
            id          TEXT PRIMARY KEY,
            task_id     TEXT NOT NULL,
            user_id     TEXT NOT NULL,
            start_time  INTEGER NOT NULL,
            end_time    INTEGER,
            description TEXT,
            created_at  INTEGER NOT NULL,
            updated_at  INTEGER NOT NULL,
            CHECK (end_time IS NULL OR end_time >= start_time),
            CHECK (description IS NULL OR length(description) <= 500)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS time_entries_one_active_per_user
            ON time_entries (user_id) WHERE end_time IS NULL;`,
		`CREATE INDEX IF NOT EXISTS time_entries_user_start
            ON time_entries (user_id, start_time DESC);`,
		`CREATE INDEX IF NOT EXISTS time_entries_user_task_start
            ON time_entries (user_id, task_id, start_time DESC);`,
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return nil
}

// isActiveViolation reports whether err comes from the one-active-entry index.
func isActiveViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return false
	}
	return strings.Contains(se.Error(), "time_entries.user_id")
}

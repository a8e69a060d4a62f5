// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Creates the four collections and their indexes at initialization

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the collections and their indexes if they don't
// exist. Collections are declared once here and are immutable for the
// process lifetime.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id                  TEXT PRIMARY KEY,
			email               TEXT NOT NULL,
			display_name        TEXT NOT NULL,
			avatar_url          TEXT,
			password_hash       TEXT,
			prefs_json          TEXT,
			subscription_tier   TEXT NOT NULL DEFAULT 'free',
			subscription_status TEXT NOT NULL DEFAULT 'active',
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(email);

		CREATE TABLE IF NOT EXISTS tasks (
			id               TEXT PRIMARY KEY,
			owner_id         TEXT NOT NULL REFERENCES accounts(id),
			title            TEXT NOT NULL,
			description      TEXT,
			status           TEXT NOT NULL DEFAULT 'todo',
			priority         TEXT NOT NULL DEFAULT 'medium',
			due_date         TEXT,
			completed_at     TEXT,
			tags_json        TEXT,
			category         TEXT,
			estimate_minutes INTEGER,
			actual_minutes   INTEGER,
			attachments_json TEXT,
			created_at       TEXT NOT NULL,
			updated_at       TEXT NOT NULL,

			CHECK (status IN ('todo', 'in_progress', 'review', 'done')),
			CHECK (priority IN ('low', 'medium', 'high', 'urgent'))
		);

		CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
		CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			owner_id    TEXT NOT NULL REFERENCES accounts(id),
			name        TEXT NOT NULL,
			description TEXT,
			color       TEXT,
			archived    INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);

		CREATE TABLE IF NOT EXISTS sessions (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL REFERENCES accounts(id),
			device     TEXT,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	// SQLite returns "UNIQUE constraint failed" in the error message
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "unique constraint"))
}

// nullString returns nil for empty strings, otherwise the string itself
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime formats an optional timestamp as RFC3339, nil when absent
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// parseNullTime parses an optional RFC3339 timestamp column
func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Ensure SQLiteStore implements the full storage contract
var _ Store = (*SQLiteStore)(nil)

// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ralphtown/ralphtown/lib/clock"
	"github.com/ralphtown/ralphtown/lib/sqlitepool"
)

// ErrNotFound is returned when a lookup names a row that does not
// exist. Callers distinguish it from operational failures with
// errors.Is.
var ErrNotFound = errors.New("record not found")

// schemaVersion is bumped whenever the schema below changes shape.
const schemaVersion = 1

const schema = `
	CREATE TABLE IF NOT EXISTS repos (
		id         TEXT PRIMARY KEY,
		path       TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		repo_id    TEXT NOT NULL REFERENCES repos(id) ON DELETE CASCADE,
		name       TEXT,
		status     TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_repo ON sessions(repo_id);

	CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at);

	CREATE TABLE IF NOT EXISTS output_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		stream     TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_output_logs_session ON output_logs(session_id, id);

	CREATE TABLE IF NOT EXISTS config (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	);
`

// Config holds the parameters for opening a store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory is created if it does not exist.
	Path string

	// PoolSize is the number of connections in the pool. Defaults to
	// 4 if zero or negative.
	PoolSize int

	// Clock provides timestamps for inserts and updates. Defaults to
	// the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Store provides persistence for repositories, sessions, messages,
// process output, and configuration. Safe for concurrent use; each
// operation borrows a pooled connection for its duration.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open opens (creating if necessary) the database at cfg.Path and
// applies the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: creating database directory: %w", err)
		}
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	store := &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}
	if err := store.applySchema(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: applying schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) applySchema() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return err
	}

	var current int
	err = sqlitex.Execute(conn, "SELECT version FROM schema_version LIMIT 1", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			current = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return err
	}

	if current < schemaVersion {
		if err := sqlitex.Execute(conn, "DELETE FROM schema_version", nil); err != nil {
			return err
		}
		err := sqlitex.Execute(conn, "INSERT INTO schema_version (version) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{schemaVersion},
		})
		if err != nil {
			return err
		}
		s.logger.Info("schema applied", "version", schemaVersion)
	}
	return nil
}

// now returns the current time in the canonical stored form: RFC 3339
// UTC with sub-second precision dropped, so round trips compare equal.
func (s *Store) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Second)
}

// formatTime renders a timestamp in the stored text form.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a stored timestamp.
func parseTime(text string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("store: parsing timestamp %q: %w", text, err)
	}
	return t, nil
}

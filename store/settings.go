// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// GetConfig returns the value for a configuration key, or ErrNotFound.
func (s *Store) GetConfig(ctx context.Context, key string) (ConfigEntry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("store: get config: %w", err)
	}
	defer s.pool.Put(conn)

	var entry ConfigEntry
	found := false
	err = sqlitex.Execute(conn,
		"SELECT key, value, updated_at FROM config WHERE key = ?",
		&sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var scanErr error
				entry, scanErr = scanConfigEntry(stmt)
				return scanErr
			},
		})
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("store: get config: %w", err)
	}
	if !found {
		return ConfigEntry{}, ErrNotFound
	}
	return entry, nil
}

// SetConfig creates or replaces a configuration key.
func (s *Store) SetConfig(ctx context.Context, key, value string) (ConfigEntry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("store: set config: %w", err)
	}
	defer s.pool.Put(conn)

	entry := ConfigEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}
	err = sqlitex.Execute(conn,
		"INSERT OR REPLACE INTO config (key, value, updated_at) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{entry.Key, entry.Value, formatTime(entry.UpdatedAt)},
		})
	if err != nil {
		return ConfigEntry{}, fmt.Errorf("store: set config: %w", err)
	}
	return entry, nil
}

// ListConfig returns all configuration entries ordered by key.
func (s *Store) ListConfig(ctx context.Context) ([]ConfigEntry, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list config: %w", err)
	}
	defer s.pool.Put(conn)

	var entries []ConfigEntry
	err = sqlitex.Execute(conn,
		"SELECT key, value, updated_at FROM config ORDER BY key",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, scanErr := scanConfigEntry(stmt)
				if scanErr != nil {
					return scanErr
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list config: %w", err)
	}
	return entries, nil
}

// DeleteConfig removes a configuration key. Returns ErrNotFound if the
// key is absent.
func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: delete config: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM config WHERE key = ?", &sqlitex.ExecOptions{
		Args: []any{key},
	})
	if err != nil {
		return fmt.Errorf("store: delete config: %w", err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanConfigEntry(stmt *sqlite.Stmt) (ConfigEntry, error) {
	updatedAt, err := parseTime(stmt.ColumnText(2))
	if err != nil {
		return ConfigEntry{}, err
	}
	return ConfigEntry{
		Key:       stmt.ColumnText(0),
		Value:     stmt.ColumnText(1),
		UpdatedAt: updatedAt,
	}, nil
}

// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ralphtown/ralphtown/hub"
)

// defaultOutputPageSize bounds ListOutputs when the caller passes no
// limit. Output tables grow large; unbounded reads are never wanted.
const defaultOutputPageSize = 500

// AppendOutput stores one chunk of captured process output. Returns
// ErrNotFound if the session does not exist.
func (s *Store) AppendOutput(ctx context.Context, sessionID uuid.UUID, stream hub.OutputStream, content string) (OutputLog, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return OutputLog{}, fmt.Errorf("store: append output: %w", err)
	}
	defer s.pool.Put(conn)

	if ok, err := sessionExists(conn, sessionID); err != nil {
		return OutputLog{}, fmt.Errorf("store: append output: %w", err)
	} else if !ok {
		return OutputLog{}, ErrNotFound
	}

	entry := OutputLog{
		SessionID: sessionID,
		Stream:    stream,
		Content:   content,
		CreatedAt: s.now(),
	}

	err = sqlitex.Execute(conn,
		"INSERT INTO output_logs (session_id, stream, content, created_at) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				entry.SessionID.String(),
				string(entry.Stream),
				entry.Content,
				formatTime(entry.CreatedAt),
			},
		})
	if err != nil {
		return OutputLog{}, fmt.Errorf("store: append output: %w", err)
	}
	entry.ID = conn.LastInsertRowID()
	return entry, nil
}

// ListOutputs returns a session's output in capture order, starting
// after the given cursor (an OutputLog.ID; pass 0 for the beginning).
// At most limit rows are returned; limit <= 0 means the default page
// size. Callers page by passing the last returned ID as the next
// cursor.
func (s *Store) ListOutputs(ctx context.Context, sessionID uuid.UUID, afterID int64, limit int) ([]OutputLog, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list outputs: %w", err)
	}
	defer s.pool.Put(conn)

	if limit <= 0 {
		limit = defaultOutputPageSize
	}

	var entries []OutputLog
	err = sqlitex.Execute(conn,
		"SELECT id, session_id, stream, content, created_at FROM output_logs WHERE session_id = ? AND id > ? ORDER BY id LIMIT ?",
		&sqlitex.ExecOptions{
			Args: []any{sessionID.String(), afterID, limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entry, scanErr := scanOutput(stmt)
				if scanErr != nil {
					return scanErr
				}
				entries = append(entries, entry)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list outputs: %w", err)
	}
	return entries, nil
}

// CountOutputs returns the number of stored output rows for a session.
func (s *Store) CountOutputs(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: count outputs: %w", err)
	}
	defer s.pool.Put(conn)

	var count int64
	err = sqlitex.Execute(conn,
		"SELECT COUNT(*) FROM output_logs WHERE session_id = ?",
		&sqlitex.ExecOptions{
			Args: []any{sessionID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return 0, fmt.Errorf("store: count outputs: %w", err)
	}
	return count, nil
}

func scanOutput(stmt *sqlite.Stmt) (OutputLog, error) {
	sessionID, err := uuid.Parse(stmt.ColumnText(1))
	if err != nil {
		return OutputLog{}, fmt.Errorf("store: parsing output session id: %w", err)
	}
	stream, err := hub.ParseOutputStream(stmt.ColumnText(2))
	if err != nil {
		return OutputLog{}, fmt.Errorf("store: output row %d: %w", stmt.ColumnInt64(0), err)
	}
	createdAt, err := parseTime(stmt.ColumnText(4))
	if err != nil {
		return OutputLog{}, err
	}
	return OutputLog{
		ID:        stmt.ColumnInt64(0),
		SessionID: sessionID,
		Stream:    stream,
		Content:   stmt.ColumnText(3),
		CreatedAt: createdAt,
	}, nil
}

// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// InsertMessage appends a chat message to a session. Returns
// ErrNotFound if the session does not exist.
func (s *Store) InsertMessage(ctx context.Context, sessionID uuid.UUID, role MessageRole, content string) (Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	defer s.pool.Put(conn)

	if ok, err := sessionExists(conn, sessionID); err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	} else if !ok {
		return Message{}, ErrNotFound
	}

	message := Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}

	err = sqlitex.Execute(conn,
		"INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				message.ID.String(),
				message.SessionID.String(),
				string(message.Role),
				message.Content,
				formatTime(message.CreatedAt),
			},
		})
	if err != nil {
		return Message{}, fmt.Errorf("store: insert message: %w", err)
	}
	return message, nil
}

// ListMessages returns a session's messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer s.pool.Put(conn)

	var messages []Message
	err = sqlitex.Execute(conn,
		"SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at, rowid",
		&sqlitex.ExecOptions{
			Args: []any{sessionID.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				message, scanErr := scanMessage(stmt)
				if scanErr != nil {
					return scanErr
				}
				messages = append(messages, message)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	return messages, nil
}

func scanMessage(stmt *sqlite.Stmt) (Message, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return Message{}, fmt.Errorf("store: parsing message id: %w", err)
	}
	sessionID, err := uuid.Parse(stmt.ColumnText(1))
	if err != nil {
		return Message{}, fmt.Errorf("store: parsing message session id: %w", err)
	}
	role, err := ParseMessageRole(stmt.ColumnText(2))
	if err != nil {
		return Message{}, fmt.Errorf("store: message %s: %w", id, err)
	}
	createdAt, err := parseTime(stmt.ColumnText(4))
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   stmt.ColumnText(3),
		CreatedAt: createdAt,
	}, nil
}

func sessionExists(conn *sqlite.Conn, id uuid.UUID) (bool, error) {
	exists := false
	err := sqlitex.Execute(conn, "SELECT 1 FROM sessions WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	return exists, err
}

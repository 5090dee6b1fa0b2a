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

const sessionColumns = "id, repo_id, name, status, created_at, updated_at"

// InsertSession creates a session for a repository. New sessions start
// idle. The name may be empty. Returns ErrNotFound if the repository
// does not exist.
func (s *Store) InsertSession(ctx context.Context, repoID uuid.UUID, name string) (Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("store: insert session: %w", err)
	}
	defer s.pool.Put(conn)

	// The foreign key would reject an unknown repo, but checking
	// explicitly lets callers map the failure to a clean 404.
	exists := false
	err = sqlitex.Execute(conn, "SELECT 1 FROM repos WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{repoID.String()},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			exists = true
			return nil
		},
	})
	if err != nil {
		return Session{}, fmt.Errorf("store: insert session: %w", err)
	}
	if !exists {
		return Session{}, ErrNotFound
	}

	session := Session{
		ID:        uuid.New(),
		RepoID:    repoID,
		Name:      name,
		Status:    hub.StatusIdle,
		CreatedAt: s.now(),
	}
	session.UpdatedAt = session.CreatedAt

	err = sqlitex.Execute(conn,
		"INSERT INTO sessions (id, repo_id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				session.ID.String(),
				session.RepoID.String(),
				session.Name,
				string(session.Status),
				formatTime(session.CreatedAt),
				formatTime(session.UpdatedAt),
			},
		})
	if err != nil {
		return Session{}, fmt.Errorf("store: insert session: %w", err)
	}
	return session, nil
}

// GetSession returns the session with the given ID, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("store: get session: %w", err)
	}
	defer s.pool.Put(conn)

	var session Session
	found := false
	err = sqlitex.Execute(conn,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{id.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var scanErr error
				session, scanErr = scanSession(stmt)
				return scanErr
			},
		})
	if err != nil {
		return Session{}, fmt.Errorf("store: get session: %w", err)
	}
	if !found {
		return Session{}, ErrNotFound
	}
	return session, nil
}

// ListSessions returns all sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	return s.listSessionsWhere(ctx, "", nil)
}

// ListSessionsByRepo returns the sessions of one repository, most
// recently updated first.
func (s *Store) ListSessionsByRepo(ctx context.Context, repoID uuid.UUID) ([]Session, error) {
	return s.listSessionsWhere(ctx, "WHERE repo_id = ?", []any{repoID.String()})
}

func (s *Store) listSessionsWhere(ctx context.Context, condition string, args []any) ([]Session, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer s.pool.Put(conn)

	query := "SELECT " + sessionColumns + " FROM sessions"
	if condition != "" {
		query += " " + condition
	}
	query += " ORDER BY updated_at DESC, id"

	var sessions []Session
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			session, scanErr := scanSession(stmt)
			if scanErr != nil {
				return scanErr
			}
			sessions = append(sessions, session)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSessionStatus sets a session's status and refreshes its
// updated_at timestamp. Returns ErrNotFound if the ID is unknown.
func (s *Store) UpdateSessionStatus(ctx context.Context, id uuid.UUID, status hub.SessionStatus) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		"UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?",
		&sqlitex.ExecOptions{
			Args: []any{string(status), formatTime(s.now()), id.String()},
		})
	if err != nil {
		return fmt.Errorf("store: update session status: %w", err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSession removes a session and, via cascade, its messages and
// output. Returns ErrNotFound if the ID is unknown.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM sessions WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id.String()},
	})
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(stmt *sqlite.Stmt) (Session, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return Session{}, fmt.Errorf("store: parsing session id: %w", err)
	}
	repoID, err := uuid.Parse(stmt.ColumnText(1))
	if err != nil {
		return Session{}, fmt.Errorf("store: parsing session repo id: %w", err)
	}
	status, err := hub.ParseSessionStatus(stmt.ColumnText(3))
	if err != nil {
		return Session{}, fmt.Errorf("store: session %s: %w", id, err)
	}
	createdAt, err := parseTime(stmt.ColumnText(4))
	if err != nil {
		return Session{}, err
	}
	updatedAt, err := parseTime(stmt.ColumnText(5))
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:        id,
		RepoID:    repoID,
		Name:      stmt.ColumnText(2),
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

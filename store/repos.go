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

const repoColumns = "id, path, name, created_at, updated_at"

// InsertRepo registers a repository. The path must be unique; a second
// insert for the same path fails with a constraint error.
func (s *Store) InsertRepo(ctx context.Context, path, name string) (Repo, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Repo{}, fmt.Errorf("store: insert repo: %w", err)
	}
	defer s.pool.Put(conn)

	repo := Repo{
		ID:        uuid.New(),
		Path:      path,
		Name:      name,
		CreatedAt: s.now(),
	}
	repo.UpdatedAt = repo.CreatedAt

	err = sqlitex.Execute(conn,
		"INSERT INTO repos (id, path, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		&sqlitex.ExecOptions{
			Args: []any{
				repo.ID.String(),
				repo.Path,
				repo.Name,
				formatTime(repo.CreatedAt),
				formatTime(repo.UpdatedAt),
			},
		})
	if err != nil {
		return Repo{}, fmt.Errorf("store: insert repo: %w", err)
	}
	return repo, nil
}

// GetRepo returns the repository with the given ID, or ErrNotFound.
func (s *Store) GetRepo(ctx context.Context, id uuid.UUID) (Repo, error) {
	return s.getRepoWhere(ctx, "id = ?", id.String())
}

// GetRepoByPath returns the repository registered at the given path,
// or ErrNotFound.
func (s *Store) GetRepoByPath(ctx context.Context, path string) (Repo, error) {
	return s.getRepoWhere(ctx, "path = ?", path)
}

func (s *Store) getRepoWhere(ctx context.Context, condition string, arg any) (Repo, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Repo{}, fmt.Errorf("store: get repo: %w", err)
	}
	defer s.pool.Put(conn)

	var repo Repo
	found := false
	err = sqlitex.Execute(conn,
		"SELECT "+repoColumns+" FROM repos WHERE "+condition,
		&sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				var scanErr error
				repo, scanErr = scanRepo(stmt)
				return scanErr
			},
		})
	if err != nil {
		return Repo{}, fmt.Errorf("store: get repo: %w", err)
	}
	if !found {
		return Repo{}, ErrNotFound
	}
	return repo, nil
}

// ListRepos returns all registered repositories ordered by name.
func (s *Store) ListRepos(ctx context.Context) ([]Repo, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("store: list repos: %w", err)
	}
	defer s.pool.Put(conn)

	var repos []Repo
	err = sqlitex.Execute(conn,
		"SELECT "+repoColumns+" FROM repos ORDER BY name",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				repo, scanErr := scanRepo(stmt)
				if scanErr != nil {
					return scanErr
				}
				repos = append(repos, repo)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("store: list repos: %w", err)
	}
	return repos, nil
}

// DeleteRepo removes a repository and, via cascade, its sessions and
// their messages and output. Returns ErrNotFound if the ID is unknown.
func (s *Store) DeleteRepo(ctx context.Context, id uuid.UUID) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: delete repo: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, "DELETE FROM repos WHERE id = ?", &sqlitex.ExecOptions{
		Args: []any{id.String()},
	})
	if err != nil {
		return fmt.Errorf("store: delete repo: %w", err)
	}
	if conn.Changes() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRepo(stmt *sqlite.Stmt) (Repo, error) {
	id, err := uuid.Parse(stmt.ColumnText(0))
	if err != nil {
		return Repo{}, fmt.Errorf("store: parsing repo id: %w", err)
	}
	createdAt, err := parseTime(stmt.ColumnText(3))
	if err != nil {
		return Repo{}, err
	}
	updatedAt, err := parseTime(stmt.ColumnText(4))
	if err != nil {
		return Repo{}, err
	}
	return Repo{
		ID:        id,
		Path:      stmt.ColumnText(1),
		Name:      stmt.ColumnText(2),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

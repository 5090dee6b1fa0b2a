// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/lib/git"
	"github.com/ralphtown/ralphtown/store"
)

// commitRequest is the body for POST /api/sessions/{id}/git/commit.
type commitRequest struct {
	Message string `json:"message"`

	// StageAll stages everything (git add -A) before committing.
	StageAll bool `json:"stage_all,omitempty"`
}

// resetRequest is the body for POST /api/sessions/{id}/git/reset.
// Confirm must be true: reset discards uncommitted work.
type resetRequest struct {
	Confirm bool `json:"confirm"`
}

// checkoutRequest is the body for POST /api/sessions/{id}/git/checkout.
type checkoutRequest struct {
	Branch string `json:"branch"`
}

type gitStatusResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	git.Status
}

type gitLogResponse struct {
	SessionID uuid.UUID    `json:"session_id"`
	Commits   []git.Commit `json:"commits"`
}

type gitBranchesResponse struct {
	SessionID uuid.UUID    `json:"session_id"`
	Branches  []git.Branch `json:"branches"`
}

type gitDiffResponse struct {
	SessionID    uuid.UUID       `json:"session_id"`
	Files        []git.FileDelta `json:"files"`
	TotalAdded   int             `json:"total_added"`
	TotalRemoved int             `json:"total_removed"`
}

type gitCommandResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Output    string    `json:"output"`
}

// sessionRepository resolves a session ID to a git handle on its
// repository's working tree.
func (s *Server) sessionRepository(ctx context.Context, sessionID uuid.UUID) (*git.Repository, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errNotFound("session not found: %s", sessionID)
		}
		return nil, err
	}
	repo, err := s.store.GetRepo(ctx, session.RepoID)
	if err != nil {
		// The session row exists but its repo is gone; cascade rules
		// should make this impossible.
		return nil, err
	}
	return git.NewRepository(repo.Path), nil
}

// writeGitError maps git failures onto the error envelope: a vanished
// working tree is the client's problem (400), everything else is ours.
func (s *Server) writeGitError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, git.ErrNotARepository) {
		s.writeError(w, r, errBadRequest("not a git repository"))
		return
	}
	s.writeError(w, r, err)
}

func (s *Server) handleGitStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.sessionRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status, err := repo.Status(r.Context())
	if err != nil {
		s.writeGitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gitStatusResponse{SessionID: id, Status: status})
}

func (s *Server) handleGitLog(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.sessionRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	commits, err := repo.Log(r.Context(), int(limit))
	if err != nil {
		s.writeGitError(w, r, err)
		return
	}
	if commits == nil {
		commits = []git.Commit{}
	}
	writeJSON(w, http.StatusOK, gitLogResponse{SessionID: id, Commits: commits})
}

func (s *Server) handleGitBranches(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.sessionRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	branches, err := repo.Branches(r.Context())
	if err != nil {
		s.writeGitError(w, r, err)
		return
	}
	if branches == nil {
		branches = []git.Branch{}
	}
	writeJSON(w, http.StatusOK, gitBranchesResponse{SessionID: id, Branches: branches})
}

func (s *Server) handleGitDiff(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.sessionRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	files, err := repo.DiffStat(r.Context())
	if err != nil {
		s.writeGitError(w, r, err)
		return
	}

	response := gitDiffResponse{SessionID: id, Files: files}
	if response.Files == nil {
		response.Files = []git.FileDelta{}
	}
	for _, file := range files {
		response.TotalAdded += file.Added
		response.TotalRemoved += file.Removed
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleGitPull(w http.ResponseWriter, r *http.Request) {
	s.runGitCommand(w, r, func(ctx context.Context, repo *git.Repository) (string, error) {
		return repo.Pull(ctx)
	})
}

func (s *Server) handleGitPush(w http.ResponseWriter, r *http.Request) {
	s.runGitCommand(w, r, func(ctx context.Context, repo *git.Repository) (string, error) {
		return repo.Push(ctx)
	})
}

func (s *Server) handleGitCommit(w http.ResponseWriter, r *http.Request) {
	var request commitRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		s.writeError(w, r, errBadRequest("commit message must not be empty"))
		return
	}
	s.runGitCommand(w, r, func(ctx context.Context, repo *git.Repository) (string, error) {
		hash, err := repo.Commit(ctx, request.Message, request.StageAll)
		if err != nil {
			return "", err
		}
		return hash, nil
	})
}

func (s *Server) handleGitReset(w http.ResponseWriter, r *http.Request) {
	var request resetRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	if !request.Confirm {
		s.writeError(w, r, errBadRequest("reset requires confirmation: set confirm to true"))
		return
	}
	s.runGitCommand(w, r, func(ctx context.Context, repo *git.Repository) (string, error) {
		return repo.ResetHard(ctx)
	})
}

func (s *Server) handleGitCheckout(w http.ResponseWriter, r *http.Request) {
	var request checkoutRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	branch := strings.TrimSpace(request.Branch)
	if branch == "" || strings.HasPrefix(branch, "-") {
		s.writeError(w, r, errBadRequest("invalid branch name %q", request.Branch))
		return
	}
	s.runGitCommand(w, r, func(ctx context.Context, repo *git.Repository) (string, error) {
		return repo.Checkout(ctx, branch)
	})
}

// runGitCommand shares the session-resolution and response plumbing of
// the mutating git endpoints.
func (s *Server) runGitCommand(w http.ResponseWriter, r *http.Request, run func(context.Context, *git.Repository) (string, error)) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.sessionRepository(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	output, err := run(r.Context(), repo)
	if err != nil {
		s.writeGitError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gitCommandResponse{SessionID: id, Output: output})
}

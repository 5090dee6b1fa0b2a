// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ralphtown/ralphtown/store"
)

// addRepoRequest is the body for POST /api/repos.
type addRepoRequest struct {
	Path string `json:"path"`

	// Name defaults to the directory name when empty.
	Name string `json:"name,omitempty"`
}

// scanRequest is the body for POST /api/repos/scan.
type scanRequest struct {
	Directories []string `json:"directories"`

	// Depth is the maximum directory depth to descend. Defaults to 2.
	Depth int `json:"depth,omitempty"`
}

const defaultScanDepth = 2

// foundRepo is one repository discovered by a scan.
type foundRepo struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type scanResponse struct {
	Found []foundRepo `json:"found"`
}

func (s *Server) handleListRepos(w http.ResponseWriter, r *http.Request) {
	repos, err := s.store.ListRepos(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if repos == nil {
		repos = []store.Repo{}
	}
	writeJSON(w, http.StatusOK, repos)
}

func (s *Server) handleAddRepo(w http.ResponseWriter, r *http.Request) {
	var request addRepoRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	if request.Path == "" {
		s.writeError(w, r, errBadRequest("path is required"))
		return
	}

	info, err := os.Stat(request.Path)
	if err != nil || !info.IsDir() {
		s.writeError(w, r, errBadRequest("path does not exist: %s", request.Path))
		return
	}
	if !isGitRepository(request.Path) {
		s.writeError(w, r, errBadRequest("not a git repository: %s", request.Path))
		return
	}

	// Canonicalize so the same repository registered through different
	// relative paths or symlinks dedupes to one row.
	canonical, err := filepath.EvalSymlinks(request.Path)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	canonical, err = filepath.Abs(canonical)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	name := request.Name
	if name == "" {
		name = filepath.Base(canonical)
	}

	if _, err := s.store.GetRepoByPath(r.Context(), canonical); err == nil {
		s.writeError(w, r, errConflict("repository already registered: %s", canonical))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		s.writeError(w, r, err)
		return
	}

	repo, err := s.store.InsertRepo(r.Context(), canonical, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, repo)
}

func (s *Server) handleGetRepo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	repo, err := s.store.GetRepo(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("repository not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, repo)
}

func (s *Server) handleDeleteRepo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteRepo(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("repository not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleScanRepos(w http.ResponseWriter, r *http.Request) {
	var request scanRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	depth := request.Depth
	if depth <= 0 {
		depth = defaultScanDepth
	}

	found := []foundRepo{}
	for _, dir := range request.Directories {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		scanDirectory(dir, 0, depth, &found)
	}
	writeJSON(w, http.StatusOK, scanResponse{Found: found})
}

// scanDirectory walks one directory tree collecting git repositories.
// Repositories are not descended into; hidden directories are skipped.
func scanDirectory(path string, currentDepth, maxDepth int, found *[]foundRepo) {
	if isGitRepository(path) {
		*found = append(*found, foundRepo{
			Path: path,
			Name: filepath.Base(path),
		})
		return
	}
	if currentDepth >= maxDepth {
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		scanDirectory(filepath.Join(path, entry.Name()), currentDepth+1, maxDepth, found)
	}
}

// isGitRepository reports whether path is the root of a git working
// tree. Checking for the .git entry directly keeps directory scans
// from spawning a git process per candidate; the per-session git
// operations in gitapi.go do the real validation.
func isGitRepository(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/store"
)

// createSessionRequest is the body for POST /api/sessions.
type createSessionRequest struct {
	RepoID uuid.UUID `json:"repo_id"`
	Name   string    `json:"name,omitempty"`
}

// createMessageRequest is the body for POST /api/sessions/{id}/messages.
type createMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var (
		sessions []store.Session
		err      error
	)
	if raw := r.URL.Query().Get("repo_id"); raw != "" {
		repoID, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			s.writeError(w, r, errBadRequest("invalid repo_id %q", raw))
			return
		}
		sessions, err = s.store.ListSessionsByRepo(r.Context(), repoID)
	} else {
		sessions, err = s.store.ListSessions(r.Context())
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var request createSessionRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	if request.RepoID == uuid.Nil {
		s.writeError(w, r, errBadRequest("repo_id is required"))
		return
	}

	session, err := s.store.InsertSession(r.Context(), request.RepoID, request.Name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("repository not found: %s", request.RepoID))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// A 404 for a missing session beats an empty list that looks like
	// a session with no history.
	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}

	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var request createMessageRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := store.ParseMessageRole(request.Role)
	if err != nil {
		s.writeError(w, r, errBadRequest("%v", err))
		return
	}
	if request.Content == "" {
		s.writeError(w, r, errBadRequest("content is required"))
		return
	}

	message, err := s.store.InsertMessage(r.Context(), id, role, request.Content)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

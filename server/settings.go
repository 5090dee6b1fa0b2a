// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ralphtown/ralphtown/store"
)

// configResponse is the body for GET /api/config: a flat key/value
// map, matching what frontends want to bind to a settings form.
type configResponse struct {
	Config map[string]string `json:"config"`
}

// updateConfigRequest is the body for PUT /api/config.
type updateConfigRequest struct {
	Config map[string]string `json:"config"`
}

// configValueResponse is the body for the single-key endpoints. Value
// is null when the key is unset.
type configValueResponse struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
}

// setConfigValueRequest is the body for PUT /api/config/{key}.
type setConfigValueRequest struct {
	Value string `json:"value"`
}

// backend describes one supported AI backend.
type backend struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// preset describes one workflow preset.
type preset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleGetAllConfig(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListConfig(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	config := make(map[string]string, len(entries))
	for _, entry := range entries {
		config[entry.Key] = entry.Value
	}
	writeJSON(w, http.StatusOK, configResponse{Config: config})
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var request updateConfigRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	for key, value := range request.Config {
		if key == "" {
			s.writeError(w, r, errBadRequest("config keys must not be empty"))
			return
		}
		if _, err := s.store.SetConfig(r.Context(), key, value); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	s.handleGetAllConfig(w, r)
}

func (s *Server) handleGetConfigValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	entry, err := s.store.GetConfig(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, configValueResponse{Key: key})
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configValueResponse{Key: key, Value: &entry.Value})
}

func (s *Server) handleSetConfigValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var request setConfigValueRequest
	if err := decodeJSON(r, &request); err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.store.SetConfig(r.Context(), key, request.Value)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, configValueResponse{Key: key, Value: &entry.Value})
}

func (s *Server) handleDeleteConfigValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.DeleteConfig(r.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("config key not set: %s", key))
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleListBackends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]backend{"backends": {
		{
			ID:          "claude",
			Name:        "Claude (Anthropic)",
			Description: "Anthropic's Claude models via API",
		},
		{
			ID:          "bedrock",
			Name:        "AWS Bedrock",
			Description: "Claude models via AWS Bedrock",
		},
		{
			ID:          "vertex",
			Name:        "Google Vertex AI",
			Description: "Claude models via Google Cloud Vertex AI",
		},
	}})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]preset{"presets": {
		{
			ID:          "default",
			Name:        "Default",
			Description: "Standard autonomous mode",
		},
		{
			ID:          "tdd-red-green",
			Name:        "TDD Red-Green",
			Description: "Test-driven development: write failing test, then implement",
		},
		{
			ID:          "feature",
			Name:        "Feature Development",
			Description: "Implement a new feature with proper planning",
		},
		{
			ID:          "debug",
			Name:        "Debug",
			Description: "Investigate and fix bugs",
		},
		{
			ID:          "refactor",
			Name:        "Refactor",
			Description: "Clean up and improve code structure",
		},
		{
			ID:          "review",
			Name:        "Code Review",
			Description: "Review code and suggest improvements",
		},
	}})
}

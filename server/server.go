// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/hub"
	"github.com/ralphtown/ralphtown/store"
)

// Server holds the dependencies shared by all HTTP handlers.
type Server struct {
	store  *store.Store
	hub    *hub.Hub
	logger *slog.Logger
}

// Options configures a Server. Store and Hub are required.
type Options struct {
	Store *store.Store
	Hub   *hub.Hub

	// Logger receives request failures and websocket lifecycle
	// messages. Defaults to a discard logger.
	Logger *slog.Logger
}

// New creates a Server. Call Handler to obtain the router.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("server: Store is required")
	}
	if opts.Hub == nil {
		return nil, fmt.Errorf("server: Hub is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		store:  opts.Store,
		hub:    opts.Hub,
		logger: logger,
	}, nil
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/api/health", s.handleHealth)

	router.Route("/api/repos", func(router chi.Router) {
		router.Get("/", s.handleListRepos)
		router.Post("/", s.handleAddRepo)
		router.Post("/scan", s.handleScanRepos)
		router.Get("/{id}", s.handleGetRepo)
		router.Delete("/{id}", s.handleDeleteRepo)
	})

	router.Route("/api/sessions", func(router chi.Router) {
		router.Get("/", s.handleListSessions)
		router.Post("/", s.handleCreateSession)
		router.Get("/{id}", s.handleGetSession)
		router.Delete("/{id}", s.handleDeleteSession)

		router.Get("/{id}/messages", s.handleListMessages)
		router.Post("/{id}/messages", s.handleCreateMessage)

		router.Get("/{id}/output", s.handleListOutput)
		router.Get("/{id}/output/export", s.handleExportOutput)

		router.Route("/{id}/git", func(router chi.Router) {
			router.Get("/status", s.handleGitStatus)
			router.Get("/log", s.handleGitLog)
			router.Get("/branches", s.handleGitBranches)
			router.Get("/diff", s.handleGitDiff)
			router.Post("/pull", s.handleGitPull)
			router.Post("/push", s.handleGitPush)
			router.Post("/commit", s.handleGitCommit)
			router.Post("/reset", s.handleGitReset)
			router.Post("/checkout", s.handleGitCheckout)
		})
	})

	router.Route("/api/config", func(router chi.Router) {
		router.Get("/", s.handleGetAllConfig)
		router.Put("/", s.handleUpdateConfig)
		router.Get("/backends", s.handleListBackends)
		router.Get("/presets", s.handleListPresets)
		router.Get("/{key}", s.handleGetConfigValue)
		router.Put("/{key}", s.handleSetConfigValue)
		router.Delete("/{key}", s.handleDeleteConfigValue)
	})

	router.Get("/ws", s.handleWebsocket)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} URL parameter as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errBadRequest("invalid id %q", raw)
	}
	return id, nil
}

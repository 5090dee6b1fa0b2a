// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/klauspost/compress/zstd"

	"github.com/ralphtown/ralphtown/store"
)

// outputPageResponse is the body for GET /api/sessions/{id}/output.
// Clients page forward by passing the last row's id as ?after= on the
// next request; HasMore tells them whether to bother.
type outputPageResponse struct {
	SessionID string            `json:"session_id"`
	Rows      []store.OutputLog `json:"rows"`
	Total     int64             `json:"total"`
	HasMore   bool              `json:"has_more"`
}

func (s *Server) handleListOutput(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}

	after, err := queryInt64(r, "after", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt64(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rows, err := s.store.ListOutputs(r.Context(), id, after, int(limit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.store.CountOutputs(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	hasMore := false
	if len(rows) > 0 {
		remaining, err := s.store.ListOutputs(r.Context(), id, rows[len(rows)-1].ID, 1)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		hasMore = len(remaining) > 0
	}
	if rows == nil {
		rows = []store.OutputLog{}
	}

	writeJSON(w, http.StatusOK, outputPageResponse{
		SessionID: id.String(),
		Rows:      rows,
		Total:     total,
		HasMore:   hasMore,
	})
}

// handleExportOutput streams the session's full transcript as a
// zstd-compressed text attachment. Rows are fetched page by page so an
// arbitrarily long session never materializes in memory.
func (s *Server) handleExportOutput(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, r, errNotFound("session not found: %s", id))
			return
		}
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "session-"+id.String()+".txt.zst"))

	encoder, err := zstd.NewWriter(w)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var after int64
	for {
		rows, err := s.store.ListOutputs(r.Context(), id, after, 0)
		if err != nil {
			// Headers are already out; all we can do is stop the
			// stream so the client sees a truncated archive.
			s.logger.Error("transcript export aborted", "session_id", id, "error", err)
			encoder.Close()
			return
		}
		if len(rows) == 0 {
			break
		}
		for _, row := range rows {
			line := fmt.Sprintf("[%s] [%s] %s",
				row.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				row.Stream,
				row.Content,
			)
			if len(line) == 0 || line[len(line)-1] != '\n' {
				line += "\n"
			}
			if _, err := encoder.Write([]byte(line)); err != nil {
				s.logger.Error("transcript export aborted", "session_id", id, "error", err)
				encoder.Close()
				return
			}
		}
		after = rows[len(rows)-1].ID
	}

	if err := encoder.Close(); err != nil {
		s.logger.Error("transcript export flush failed", "session_id", id, "error", err)
	}
}

// queryInt64 parses an optional non-negative integer query parameter.
func queryInt64(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, errBadRequest("invalid %s %q", name, raw)
	}
	return value, nil
}

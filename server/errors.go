// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ralphtown/ralphtown/store"
)

// apiError carries an HTTP status, a stable machine-readable code, and
// a human-readable message. Handlers return it through writeError.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func errNotFound(format string, args ...any) *apiError {
	return &apiError{status: http.StatusNotFound, code: "NOT_FOUND", message: fmt.Sprintf(format, args...)}
}

func errBadRequest(format string, args ...any) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "BAD_REQUEST", message: fmt.Sprintf(format, args...)}
}

func errConflict(format string, args ...any) *apiError {
	return &apiError{status: http.StatusConflict, code: "CONFLICT", message: fmt.Sprintf(format, args...)}
}

// errorEnvelope is the wire shape of every error response.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError renders any error as the JSON error envelope. Errors that
// are not apiError (and not store.ErrNotFound) map to a generic 500;
// their detail is logged by the caller, not sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, store.ErrNotFound):
		apiErr = errNotFound("record not found")
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		apiErr = &apiError{
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_ERROR",
			message: "internal server error",
		}
	}

	writeJSON(w, apiErr.status, errorEnvelope{
		Error: errorBody{Code: apiErr.code, Message: apiErr.message},
	})
}

// writeJSON renders a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encode failures at this point mean the connection is gone;
	// there is nothing useful left to do with the error.
	json.NewEncoder(w).Encode(body)
}

// decodeJSON parses a request body into destination, rejecting unknown
// fields so client typos surface as 400s instead of silent drops.
func decodeJSON(r *http.Request, destination any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(destination); err != nil {
		return errBadRequest("invalid request body: %v", err)
	}
	return nil
}

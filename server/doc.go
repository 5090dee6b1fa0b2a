// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes Ralphtown's HTTP surface: a JSON REST API for
// repositories, sessions, messages, captured output, git operations,
// and configuration, plus the /ws websocket endpoint that bridges
// browser connections onto the hub.
//
// File organization:
//
//   - server.go: Server type and the chi router
//   - http.go: TCP listener lifecycle with graceful shutdown
//   - errors.go: the JSON error envelope and status mapping
//   - repos.go: repository registration, listing, and scanning
//   - sessions.go: session and message endpoints
//   - outputs.go: output paging and the compressed transcript export
//   - gitapi.go: per-session git operations
//   - settings.go: configuration key/value endpoints
//   - ws.go: websocket accept and the hub transport adapter
//
// All error responses share one envelope:
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
//
// Handlers never expose internal error text for 500s; the detail goes
// to the log and the client gets a generic message.
package server

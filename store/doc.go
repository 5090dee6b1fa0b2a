// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package store provides SQLite persistence for Ralphtown: registered
// repositories, sessions, chat messages, captured process output, and
// server configuration.
//
// The store is backed by a connection pool from lib/sqlitepool (WAL
// mode, foreign keys enforced). The schema is applied on open and
// versioned through the schema_version table. All timestamps are
// stored as RFC 3339 UTC text; all UUID keys are stored as their
// canonical string form.
//
// File organization:
//
//   - store.go: Store type, Open/Close, schema
//   - models.go: row types and the message role enum
//   - repos.go: repository CRUD
//   - sessions.go: session CRUD and status updates
//   - messages.go: chat message append and listing
//   - outputs.go: process output append, paging, and counting
//   - settings.go: key/value configuration entries
//
// Deleting a repository cascades to its sessions; deleting a session
// cascades to its messages and output rows. Lookups of absent rows
// return [ErrNotFound].
package store

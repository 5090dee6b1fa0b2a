// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/hub"
)

// Repo is a registered git repository.
type Repo struct {
	ID        uuid.UUID `json:"id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session is one agent run against a repository. Its status follows
// the session lifecycle broadcast over the hub, so the stored value is
// the same enum the wire protocol uses.
type Session struct {
	ID        uuid.UUID         `json:"id"`
	RepoID    uuid.UUID         `json:"repo_id"`
	Name      string            `json:"name,omitempty"`
	Status    hub.SessionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ParseMessageRole validates a role string from external input.
func ParseMessageRole(text string) (MessageRole, error) {
	switch role := MessageRole(text); role {
	case RoleUser, RoleAssistant, RoleSystem:
		return role, nil
	default:
		return "", fmt.Errorf("unknown message role %q", text)
	}
}

// Message is one chat message within a session.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	SessionID uuid.UUID   `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// OutputLog is one captured chunk of process output. ID is the SQLite
// rowid; it is monotonically increasing per insert and serves as the
// paging cursor.
type OutputLog struct {
	ID        int64            `json:"id"`
	SessionID uuid.UUID        `json:"session_id"`
	Stream    hub.OutputStream `json:"stream"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// ConfigEntry is one key/value configuration row.
type ConfigEntry struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

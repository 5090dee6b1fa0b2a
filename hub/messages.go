// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CommandType tags a client→server command frame.
type CommandType string

// Command type constants for the client protocol. One command per
// logical frame.
const (
	// CommandSubscribe joins a session's topic. Requires SessionID.
	CommandSubscribe CommandType = "subscribe"

	// CommandUnsubscribe leaves a session's topic. Requires SessionID.
	CommandUnsubscribe CommandType = "unsubscribe"

	// CommandCancel requests cancellation of a running session. The
	// hub's contract is broadcast-only: a cancelled status event is
	// published to the session's topic; stopping the producer itself
	// is the producer supervisor's job.
	CommandCancel CommandType = "cancel"

	// CommandPing is a liveness check answered with a pong event.
	CommandPing CommandType = "ping"
)

// EventType tags a server→client event frame.
type EventType string

// Event type constants for the client protocol.
const (
	// EventSubscribed acknowledges a subscribe command.
	EventSubscribed EventType = "subscribed"

	// EventUnsubscribed acknowledges an unsubscribe command.
	EventUnsubscribed EventType = "unsubscribed"

	// EventOutput carries one line of session output on either the
	// stdout or stderr stream.
	EventOutput EventType = "output"

	// EventStatus reports a session lifecycle transition.
	EventStatus EventType = "status"

	// EventError reports malformed input or an operation failure.
	// Non-fatal: the connection stays open.
	EventError EventType = "error"

	// EventPong answers a ping command.
	EventPong EventType = "pong"
)

// OutputStream identifies which stream of a session an output line
// came from.
type OutputStream string

const (
	// StreamStdout is the session's primary output stream.
	StreamStdout OutputStream = "stdout"

	// StreamStderr is the session's error output stream.
	StreamStderr OutputStream = "stderr"
)

// ParseOutputStream converts a stored stream name back to an
// OutputStream. Returns an error for unknown names.
func ParseOutputStream(s string) (OutputStream, error) {
	switch OutputStream(s) {
	case StreamStdout, StreamStderr:
		return OutputStream(s), nil
	}
	return "", fmt.Errorf("unknown output stream %q", s)
}

// SessionStatus is a session lifecycle state as reported over the
// wire and persisted in the session store.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusRunning   SessionStatus = "running"
	StatusCompleted SessionStatus = "completed"
	StatusError     SessionStatus = "error"
	StatusCancelled SessionStatus = "cancelled"
)

// ParseSessionStatus converts a stored status name back to a
// SessionStatus. Returns an error for unknown names.
func ParseSessionStatus(s string) (SessionStatus, error) {
	switch SessionStatus(s) {
	case StatusIdle, StatusRunning, StatusCompleted, StatusError, StatusCancelled:
		return SessionStatus(s), nil
	}
	return "", fmt.Errorf("unknown session status %q", s)
}

// Command is a client→server frame: a tagged union where Type selects
// the variant and SessionID is present on the session-scoped variants.
type Command struct {
	Type      CommandType `json:"type"`
	SessionID uuid.UUID   `json:"session_id,omitzero"`
}

// Event is a server→client frame: a tagged union where Type selects
// the variant and the remaining fields are populated per variant.
// Events are produced by the hub (acks, errors, pong) or by external
// producers via [Hub.Publish] (output, status).
type Event struct {
	Type      EventType     `json:"type"`
	SessionID uuid.UUID     `json:"session_id,omitzero"`
	Stream    OutputStream  `json:"stream,omitempty"`
	Content   string        `json:"content,omitempty"`
	Status    SessionStatus `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// NewSubscribedEvent creates the acknowledgement for a subscribe command.
func NewSubscribedEvent(sessionID uuid.UUID) Event {
	return Event{Type: EventSubscribed, SessionID: sessionID}
}

// NewUnsubscribedEvent creates the acknowledgement for an unsubscribe command.
func NewUnsubscribedEvent(sessionID uuid.UUID) Event {
	return Event{Type: EventUnsubscribed, SessionID: sessionID}
}

// NewOutputEvent creates an event carrying one line of session output.
func NewOutputEvent(sessionID uuid.UUID, stream OutputStream, content string) Event {
	return Event{Type: EventOutput, SessionID: sessionID, Stream: stream, Content: content}
}

// NewStatusEvent creates an event reporting a session lifecycle transition.
func NewStatusEvent(sessionID uuid.UUID, status SessionStatus) Event {
	return Event{Type: EventStatus, SessionID: sessionID, Status: status}
}

// NewErrorEvent creates a non-fatal error report for one connection.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// NewPongEvent creates the answer to a ping command.
func NewPongEvent() Event {
	return Event{Type: EventPong}
}

// DecodeCommand parses one inbound frame. A frame that is not valid
// JSON, names an unknown command type, or omits the session id on a
// session-scoped command is a protocol error: the caller reports it
// to the offending connection and keeps the connection open.
func DecodeCommand(frame []byte) (Command, error) {
	var command Command
	if err := json.Unmarshal(frame, &command); err != nil {
		return Command{}, fmt.Errorf("invalid command frame: %w", err)
	}
	switch command.Type {
	case CommandSubscribe, CommandUnsubscribe, CommandCancel:
		if command.SessionID == uuid.Nil {
			return Command{}, fmt.Errorf("command %q requires a session_id", command.Type)
		}
	case CommandPing:
	default:
		return Command{}, fmt.Errorf("unknown command type %q", command.Type)
	}
	return command, nil
}

// EncodeCommand serializes a command for the wire.
func EncodeCommand(command Command) ([]byte, error) {
	data, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("encode command %q: %w", command.Type, err)
	}
	return data, nil
}

// EncodeEvent serializes an event for the wire.
func EncodeEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event %q: %w", event.Type, err)
	}
	return data, nil
}

// DecodeEvent parses one outbound frame. Used by Go clients of the
// hub; the server never decodes events.
func DecodeEvent(frame []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(frame, &event); err != nil {
		return Event{}, fmt.Errorf("invalid event frame: %w", err)
	}
	switch event.Type {
	case EventSubscribed, EventUnsubscribed, EventOutput, EventStatus, EventError, EventPong:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", event.Type)
	}
	return event, nil
}

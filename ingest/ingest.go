// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/hub"
	"github.com/ralphtown/ralphtown/lib/codec"
	"github.com/ralphtown/ralphtown/store"
)

// Record kinds accepted on the ingest socket.
const (
	KindOutput  = "output"
	KindStatus  = "status"
	KindWatched = "watched"
)

// Record is one CBOR value on an ingest connection. Kind selects which
// of the remaining fields are meaningful.
type Record struct {
	Kind      string    `cbor:"kind"`
	SessionID uuid.UUID `cbor:"session_id"`

	// Stream and Content are set for output records.
	Stream  string `cbor:"stream,omitempty"`
	Content string `cbor:"content,omitempty"`

	// Status is set for status records.
	Status string `cbor:"status,omitempty"`
}

// WatchedReply answers a "watched" query.
type WatchedReply struct {
	Watched bool `cbor:"watched"`
}

// writeTimeout bounds how long a watched reply may take to write.
const writeTimeout = 10 * time.Second

// Server accepts watcher connections on a Unix socket and routes their
// records into the store and the hub.
type Server struct {
	socketPath string
	store      *store.Store
	hub        *hub.Hub
	logger     *slog.Logger

	// activeConnections tracks in-flight connection handlers for
	// graceful shutdown. Serve waits for them before returning.
	activeConnections sync.WaitGroup
}

// Options configures a Server. SocketPath, Store, and Hub are
// required.
type Options struct {
	SocketPath string
	Store      *store.Store
	Hub        *hub.Hub

	// Logger receives operational messages. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// NewServer creates an ingest server. Call Serve to start listening.
func NewServer(opts Options) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("ingest: SocketPath is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("ingest: Store is required")
	}
	if opts.Hub == nil {
		return nil, fmt.Errorf("ingest: Hub is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		socketPath: opts.SocketPath,
		store:      opts.Store,
		hub:        opts.Hub,
		logger:     logger,
	}, nil
}

// Serve listens on the Unix socket and handles watcher connections
// until ctx is cancelled, then waits for active connections to drain.
//
// Any stale socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if dir := filepath.Dir(s.socketPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("ingest: creating socket directory: %w", err)
		}
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ingest: removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("ingest: listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("ingest socket listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("ingest accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// handleConnection decodes records from one watcher connection until
// EOF, context cancellation, or a malformed record.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Unblock the blocking decode when the server shuts down.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	decoder := codec.NewDecoder(conn)
	for {
		var record Record
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("ingest connection dropped: malformed record", "error", err)
			return
		}
		if err := s.dispatch(ctx, conn, record); err != nil {
			s.logger.Warn("ingest connection dropped", "error", err)
			return
		}
	}
}

// dispatch routes one record. A returned error ends the connection;
// per-record persistence failures for vanished sessions are logged and
// skipped instead, since the watcher may legitimately race a delete.
func (s *Server) dispatch(ctx context.Context, conn net.Conn, record Record) error {
	if record.Kind != KindWatched && record.SessionID == uuid.Nil {
		return fmt.Errorf("%s record missing session_id", record.Kind)
	}

	switch record.Kind {
	case KindOutput:
		stream, err := hub.ParseOutputStream(record.Stream)
		if err != nil {
			return fmt.Errorf("output record: %w", err)
		}
		if _, err := s.store.AppendOutput(ctx, record.SessionID, stream, record.Content); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("output for unknown session dropped", "session_id", record.SessionID)
				return nil
			}
			return err
		}
		s.hub.Publish(record.SessionID, hub.NewOutputEvent(record.SessionID, stream, record.Content))
		return nil

	case KindStatus:
		status, err := hub.ParseSessionStatus(record.Status)
		if err != nil {
			return fmt.Errorf("status record: %w", err)
		}
		if err := s.store.UpdateSessionStatus(ctx, record.SessionID, status); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("status for unknown session dropped", "session_id", record.SessionID)
				return nil
			}
			return err
		}
		s.hub.Publish(record.SessionID, hub.NewStatusEvent(record.SessionID, status))
		s.logger.Info("session status updated",
			"session_id", record.SessionID,
			"status", status,
		)
		return nil

	case KindWatched:
		if record.SessionID == uuid.Nil {
			return fmt.Errorf("watched record missing session_id")
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return fmt.Errorf("setting write deadline: %w", err)
		}
		reply := WatchedReply{Watched: s.hub.HasSubscribers(record.SessionID)}
		if err := codec.NewEncoder(conn).Encode(reply); err != nil {
			return fmt.Errorf("writing watched reply: %w", err)
		}
		if err := conn.SetWriteDeadline(time.Time{}); err != nil {
			return fmt.Errorf("clearing write deadline: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown record kind %q", record.Kind)
	}
}

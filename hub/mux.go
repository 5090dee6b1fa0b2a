// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package hub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Transport is the byte-stream boundary a Mux drives: one inbound
// frame sequence of client commands and one outbound frame sequence
// of server events. The websocket layer implements it in production;
// tests use an in-memory pipe.
//
// ReadFrame blocks until a frame arrives, the context is cancelled,
// or the transport fails; any error it returns ends the connection.
// WriteFrame failures are likewise fatal to the connection. Close
// releases the transport and unblocks a pending ReadFrame; it must be
// safe to call more than once.
type Transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
	WriteFrame(ctx context.Context, frame []byte) error
	Close() error
}

// outboundCapacity bounds the multiplexer's fan-in queue of events
// awaiting encoding. Matches the per-topic buffer so a connection
// keeping up with one busy session never stalls its forwarder.
const outboundCapacity = 256

// Mux is the per-connection multiplexer. It owns one transport for
// the connection's lifetime and bridges it to the hub: inbound frames
// are decoded and dispatched as hub operations; direct
// acknowledgements and the events forwarded from every active
// subscription are serialized through a single outbound queue so
// frames never interleave.
//
// Each active subscription gets one forwarding goroutine, spawned on
// subscribe and deduplicated per session, so a repeated subscribe
// never causes duplicate delivery. Forwarders end when their
// subscription channel closes (unsubscribe or connection teardown).
type Mux struct {
	hub          *Hub
	transport    Transport
	logger       *slog.Logger
	connectionID uuid.UUID

	outbound   chan Event
	forwarders sync.WaitGroup
}

// NewMux creates a multiplexer for one physical connection, assigning
// it a fresh connection id. Call Run to start it.
func NewMux(h *Hub, transport Transport, logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	connectionID := uuid.New()
	return &Mux{
		hub:          h,
		transport:    transport,
		logger:       logger.With("connection_id", connectionID),
		connectionID: connectionID,
		outbound:     make(chan Event, outboundCapacity),
	}
}

// ConnectionID returns the hub connection id assigned to this
// multiplexer.
func (m *Mux) ConnectionID() uuid.UUID {
	return m.connectionID
}

// Run registers the connection and serves it until the transport
// fails, the inbound stream ends, or ctx is cancelled. On return the
// connection is unregistered, every forwarding goroutine has exited,
// and the transport is closed. Transport-level failures are normal
// connection endings, not errors: Run always returns nil once
// teardown completes.
func (m *Mux) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m.hub.Register(m.connectionID)
	m.logger.Debug("connection open")

	// Writer: the single goroutine that touches the transport's
	// outbound side. Serializes every event in queue order; a write
	// failure cancels the connection context, which unwinds the
	// reader and the forwarders.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range m.outbound {
			frame, err := EncodeEvent(event)
			if err != nil {
				// Events are built by this package; an encode failure
				// is a programming error. Drop the frame, keep the
				// connection.
				m.logger.Error("event encode failed", "event_type", event.Type, "error", err)
				continue
			}
			if err := m.transport.WriteFrame(ctx, frame); err != nil {
				m.logger.Debug("outbound transport closed", "error", err)
				cancel()
				// Drain the queue so forwarders and the reader never
				// block on a dead connection during teardown.
				for range m.outbound {
				}
				return
			}
		}
	}()

	// Reader: decode and dispatch inbound frames until the transport
	// ends. Decode failures are reported to the client and the
	// connection stays open; read failures end the connection.
	for {
		frame, err := m.transport.ReadFrame(ctx)
		if err != nil {
			m.logger.Debug("inbound transport closed", "error", err)
			break
		}
		command, err := DecodeCommand(frame)
		if err != nil {
			m.enqueue(ctx, NewErrorEvent(err.Error()))
			continue
		}
		m.dispatch(ctx, command)
	}

	// Closing: drop all hub state for this connection. Closing the
	// subscription buffers here is what terminates the forwarders.
	m.hub.Unregister(m.connectionID)
	cancel()
	m.forwarders.Wait()
	close(m.outbound)
	<-writerDone
	m.transport.Close()
	m.logger.Debug("connection closed")
	return nil
}

// dispatch executes one decoded command against the hub and enqueues
// its acknowledgement.
func (m *Mux) dispatch(ctx context.Context, command Command) {
	switch command.Type {
	case CommandSubscribe:
		subscription, existing := m.hub.Subscribe(m.connectionID, command.SessionID)
		if !existing {
			m.forward(ctx, subscription)
		}
		m.enqueue(ctx, NewSubscribedEvent(command.SessionID))

	case CommandUnsubscribe:
		m.hub.Unsubscribe(m.connectionID, command.SessionID)
		m.enqueue(ctx, NewUnsubscribedEvent(command.SessionID))

	case CommandCancel:
		// Broadcast-only: every subscriber (including this
		// connection) sees the cancelled status. Terminating the
		// producer is the supervisor's responsibility.
		m.hub.Publish(command.SessionID, NewStatusEvent(command.SessionID, StatusCancelled))

	case CommandPing:
		m.enqueue(ctx, NewPongEvent())
	}
}

// forward spawns the forwarding goroutine for one subscription. The
// goroutine's lifetime is the intersection of the subscription and
// the connection: it ends when the subscription channel closes, and
// connection teardown unblocks it via the cancelled context if the
// outbound queue is no longer draining.
func (m *Mux) forward(ctx context.Context, subscription *Subscription) {
	m.forwarders.Add(1)
	go func() {
		defer m.forwarders.Done()
		for event := range subscription.Events() {
			select {
			case m.outbound <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// enqueue places a direct event (ack, error, pong) on the outbound
// queue, giving up only if the connection is tearing down.
func (m *Mux) enqueue(ctx context.Context, event Event) {
	select {
	case m.outbound <- event:
	case <-ctx.Done():
	}
}

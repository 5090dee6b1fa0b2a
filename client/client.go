// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is a minimal Go client for the ralphtown event
// websocket. It sends the command side of the wire protocol and
// surfaces the event side as a channel, leaving reconnect policy and
// event interpretation to the caller.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/hub"
)

// eventBuffer bounds the channel between the read loop and the
// consumer. A consumer that stops draining stalls the read loop, which
// eventually makes the server drop slow events for this connection;
// that is the intended backpressure behavior.
const eventBuffer = 64

// Options configures a Client.
type Options struct {
	// URL is the websocket endpoint, e.g. "ws://127.0.0.1:8420/ws".
	// Required.
	URL string

	// Logger receives read-loop diagnostics. Defaults to a discard
	// logger.
	Logger *slog.Logger
}

// Client is one live websocket connection to the event hub. Commands
// may be sent from any goroutine; events arrive on the Events channel
// until the connection ends.
type Client struct {
	conn   *websocket.Conn
	logger *slog.Logger

	events chan hub.Event

	mu     sync.Mutex
	err    error
	closed bool

	closeOnce sync.Once
}

// Dial connects to the hub websocket and starts the read loop. Close
// the client to end the connection and the Events channel.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("client: URL is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conn, _, err := websocket.Dial(ctx, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dialing %s: %w", opts.URL, err)
	}

	c := &Client{
		conn:   conn,
		logger: logger,
		events: make(chan hub.Event, eventBuffer),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the channel of server events. It is closed when the
// connection ends; check Err afterwards to distinguish a local Close
// from a transport failure.
func (c *Client) Events() <-chan hub.Event {
	return c.events
}

// Err returns the error that ended the read loop, or nil if the
// connection is live or was closed locally. Valid once Events is
// closed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Subscribe joins a session's event stream. The server acknowledges
// with a subscribed event on the Events channel.
func (c *Client) Subscribe(ctx context.Context, sessionID uuid.UUID) error {
	return c.send(ctx, hub.Command{Type: hub.CommandSubscribe, SessionID: sessionID})
}

// Unsubscribe leaves a session's event stream.
func (c *Client) Unsubscribe(ctx context.Context, sessionID uuid.UUID) error {
	return c.send(ctx, hub.Command{Type: hub.CommandUnsubscribe, SessionID: sessionID})
}

// Cancel requests cancellation of a running session.
func (c *Client) Cancel(ctx context.Context, sessionID uuid.UUID) error {
	return c.send(ctx, hub.Command{Type: hub.CommandCancel, SessionID: sessionID})
}

// Ping sends a liveness probe; the server answers with a pong event.
func (c *Client) Ping(ctx context.Context) error {
	return c.send(ctx, hub.Command{Type: hub.CommandPing})
}

// Close ends the connection. The Events channel closes once the read
// loop observes the closure. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.conn.Close(websocket.StatusNormalClosure, "")
	})
	return nil
}

func (c *Client) send(ctx context.Context, command hub.Command) error {
	frame, err := hub.EncodeCommand(command)
	if err != nil {
		return fmt.Errorf("client: encoding %s command: %w", command.Type, err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("client: sending %s command: %w", command.Type, err)
	}
	return nil
}

// readLoop decodes inbound frames onto the events channel until the
// connection ends. Frames that fail to decode end the connection: the
// server only speaks this protocol, so a bad frame means the peer is
// not a ralphtown server.
func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, frame, err := c.conn.Read(context.Background())
		if err != nil {
			if !c.isClosed() && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.setErr(err)
			}
			c.Close()
			return
		}
		event, err := hub.DecodeEvent(frame)
		if err != nil {
			c.setErr(fmt.Errorf("client: decoding event: %w", err))
			c.Close()
			return
		}
		c.events <- event
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
	c.logger.Debug("connection ended", "error", err)
}

// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/ralphtown/ralphtown/hub"
)

// wsTransport adapts a websocket connection to the hub's Transport.
// Frames are text messages carrying one JSON command or event each.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	_, frame, err := t.conn.Read(ctx)
	return frame, err
}

func (t *wsTransport) WriteFrame(ctx context.Context, frame []byte) error {
	return t.conn.Write(ctx, websocket.MessageText, frame)
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "")
}

// handleWebsocket upgrades the request and hands the connection to a
// hub multiplexer, which owns it until the client disconnects or the
// server shuts down.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The hub enforces its own backpressure per subscription;
		// clients on other origins (dev frontends) are expected.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Debug("websocket accept failed", "error", err)
		return
	}

	mux := hub.NewMux(s.hub, &wsTransport{conn: conn}, s.logger)
	s.logger.Debug("websocket connected",
		"connection_id", mux.ConnectionID(),
		"remote", r.RemoteAddr)
	_ = mux.Run(r.Context())
}

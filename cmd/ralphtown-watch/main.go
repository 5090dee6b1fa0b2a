// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// ralphtown-watch is a terminal viewer for one session's live output
// stream. It dials the ralphtownd websocket, subscribes to the given
// session, and renders arriving output in a scrollable viewport with a
// status bar. The c key requests cancellation of the session.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/ralphtown/ralphtown/client"
	"github.com/ralphtown/ralphtown/lib/process"
	"github.com/ralphtown/ralphtown/lib/version"
	"github.com/ralphtown/ralphtown/viewer"
)

// dialTimeout bounds the initial connect and subscribe handshake.
const dialTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		serverURL   string
		showVersion bool
	)
	flags := pflag.NewFlagSet("ralphtown-watch", pflag.ContinueOnError)
	flags.StringVar(&serverURL, "server", "ws://127.0.0.1:8420/ws", "ralphtownd websocket URL")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}
	if showVersion {
		version.Print("ralphtown-watch")
		return nil
	}

	args := flags.Args()
	if len(args) != 1 {
		return fmt.Errorf("usage: ralphtown-watch [--server URL] <session-id>")
	}
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	c, err := client.Dial(ctx, client.Options{URL: serverURL})
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Subscribe(ctx, sessionID); err != nil {
		return err
	}

	model := viewer.NewModel(viewer.Options{
		SessionID:  sessionID,
		Events:     c.Events(),
		Controller: c,
	})
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	// A transport failure that ended the stream surfaces after the UI
	// exits, where it is visible.
	return c.Err()
}

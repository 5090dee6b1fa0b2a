// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

// Package viewer implements the terminal UI for watching one session's
// live output stream. Built on bubbletea (Elm architecture): a bubbles
// viewport holds the scrollback and a lipgloss status bar shows the
// session, connection state, and the session's last reported status.
//
// The viewer is deliberately read-mostly. Its one mutation is cancel
// (the c key), sent through the [Controller] interface so tests can
// drive the model without a live connection.
//
// Data flow:
//
//	[hub websocket] -> client.Events()
//	        | (listen command, re-armed per receive)
//	    [Model] <- bubbletea event loop
//	        |
//	  [terminal output]
package viewer

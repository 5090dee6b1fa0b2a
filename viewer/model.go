// Copyright 2026 The Ralphtown Authors
// SPDX-License-Identifier: Apache-2.0

package viewer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/ralphtown/ralphtown/hub"
)

// Controller is the command side of the connection the viewer drives.
// Satisfied by [client.Client].
type Controller interface {
	Cancel(ctx context.Context, sessionID uuid.UUID) error
}

// statusBarHeight is the fixed chrome below the viewport: one status
// bar line and one help line.
const statusBarHeight = 2

// cancelTimeout bounds the cancel command send. The viewer must never
// hang on a dead connection.
const cancelTimeout = 5 * time.Second

// noticeFadeDelay is how long a transient notice (cancel sent, cancel
// failed) stays in the status bar.
const noticeFadeDelay = 3 * time.Second

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))
	stderrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
	transitionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// eventMsg wraps one hub event for delivery through the bubbletea
// message loop.
type eventMsg struct {
	event hub.Event
}

// eventsClosedMsg is sent when the event channel closes, meaning the
// connection to the server ended.
type eventsClosedMsg struct{}

// cancelResultMsg is sent when an asynchronous cancel send completes.
type cancelResultMsg struct {
	err error
}

// noticeFadeMsg clears the transient notice from the status bar.
type noticeFadeMsg struct{}

// Options configures a viewer Model.
type Options struct {
	// SessionID is the session whose stream is displayed.
	SessionID uuid.UUID

	// Events is the stream of hub events, normally client.Events().
	// Only events for SessionID should arrive here; the model trusts
	// the subscription to have filtered.
	Events <-chan hub.Event

	// Controller sends cancel commands. Optional: with a nil
	// Controller the c key does nothing.
	Controller Controller
}

// Model is the bubbletea model for the session viewer.
type Model struct {
	sessionID  uuid.UUID
	events     <-chan hub.Event
	controller Controller

	viewport viewport.Model
	lines    []string

	// follow pins the viewport to the newest line. Scrolling up
	// releases it; G re-engages it.
	follow bool

	connected bool
	status    hub.SessionStatus
	notice    string

	width  int
	height int
	ready  bool
}

// NewModel creates a viewer model. The first WindowSizeMsg completes
// initialization; View renders a placeholder until then.
func NewModel(opts Options) Model {
	return Model{
		sessionID:  opts.SessionID,
		events:     opts.Events,
		controller: opts.Controller,
		follow:     true,
		connected:  true,
		status:     hub.StatusIdle,
	}
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return listenForEvent(model.events)
}

// listenForEvent returns a tea.Cmd that blocks until the next hub
// event arrives, then delivers it as an eventMsg. A closed channel
// becomes eventsClosedMsg.
func listenForEvent(events <-chan hub.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		if !model.ready {
			model.viewport = viewport.New(message.Width, max(1, message.Height-statusBarHeight))
			model.ready = true
			model.refreshContent()
		} else {
			model.viewport.Width = message.Width
			model.viewport.Height = max(1, message.Height-statusBarHeight)
		}
		if model.follow {
			model.viewport.GotoBottom()
		}
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case eventMsg:
		model.applyEvent(message.event)
		return model, listenForEvent(model.events)

	case eventsClosedMsg:
		model.connected = false
		return model, nil

	case cancelResultMsg:
		if message.err != nil {
			model.notice = fmt.Sprintf("cancel failed: %v", message.err)
		} else {
			model.notice = "cancel requested"
		}
		return model, tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
			return noticeFadeMsg{}
		})

	case noticeFadeMsg:
		model.notice = ""
		return model, nil
	}

	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.String() {
	case "q", "ctrl+c":
		return model, tea.Quit

	case "c":
		if model.controller == nil {
			return model, nil
		}
		controller := model.controller
		sessionID := model.sessionID
		return model, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			defer cancel()
			return cancelResultMsg{err: controller.Cancel(ctx, sessionID)}
		}

	case "g":
		model.viewport.GotoTop()
		model.follow = false
		return model, nil

	case "G":
		model.viewport.GotoBottom()
		model.follow = true
		return model, nil

	case "up", "k", "pgup":
		var command tea.Cmd
		model.viewport, command = model.viewport.Update(message)
		model.follow = false
		return model, command

	default:
		var command tea.Cmd
		model.viewport, command = model.viewport.Update(message)
		if model.viewport.AtBottom() {
			model.follow = true
		}
		return model, command
	}
}

// applyEvent folds one hub event into the scrollback and status state.
func (model *Model) applyEvent(event hub.Event) {
	switch event.Type {
	case hub.EventOutput:
		line := event.Content
		if event.Stream == hub.StreamStderr {
			line = stderrStyle.Render(line)
		}
		model.lines = append(model.lines, line)

	case hub.EventStatus:
		model.status = event.Status
		model.lines = append(model.lines,
			transitionStyle.Render(fmt.Sprintf("── session %s ──", event.Status)))

	case hub.EventError:
		model.lines = append(model.lines,
			stderrStyle.Render("server error: "+event.Message))

	default:
		// Acks and pongs carry no display content.
		return
	}

	if model.ready {
		model.refreshContent()
		if model.follow {
			model.viewport.GotoBottom()
		}
	}
}

func (model *Model) refreshContent() {
	model.viewport.SetContent(strings.Join(model.lines, "\n"))
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "connecting..."
	}
	return model.viewport.View() + "\n" + model.statusBar() + "\n" + model.helpLine()
}

// statusBar renders the one-line bar below the viewport: session id,
// last reported session status, connection state, and any transient
// notice, padded to the full width.
func (model Model) statusBar() string {
	connection := "connected"
	if !model.connected {
		connection = "disconnected"
	}
	left := fmt.Sprintf(" %s │ %s │ %s", shortID(model.sessionID), model.status, connection)
	if model.notice != "" {
		left += " │ " + model.notice
	}
	if !model.follow {
		left += " │ scrollback"
	}
	if padding := model.width - lipgloss.Width(left); padding > 0 {
		left += strings.Repeat(" ", padding)
	}
	return statusBarStyle.Render(left)
}

func (model Model) helpLine() string {
	return helpStyle.Render(" q quit · c cancel · ↑/↓ scroll · G follow")
}

// shortID abbreviates a session UUID for the status bar.
func shortID(id uuid.UUID) string {
	s := id.String()
	return s[:8]
}

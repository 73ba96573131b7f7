// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea chat screen: transcript viewport,
// input box, session sidebar, and the rebuild progress line.
package chat

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/orchestrator"
	"github.com/jeranaias/ragdesk/internal/store"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
)

const sidebarWidth = 26

const inputPlaceholder = "Ask about the indexed material…"

// Model is the chat screen.
type Model struct {
	cfg     *config.Config
	theme   *styles.Theme
	keys    keyMap
	manager *store.Manager
	orch    *orchestrator.Orchestrator
	client  *backend.Client
	sink    *eventSink

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	prog     progress.Model
	glam     *glamour.TermRenderer

	width  int
	height int
	ready  bool

	// backend status line
	status    *backend.Status
	statusErr error

	// turn state
	busy       bool
	revealText string

	// retrieval detail for the latest settled turn
	sources     []backend.Source
	contextText string

	// rebuild state
	rebuilding  bool
	rebuildJob  *backend.RebuildJob
	rebuildErr  string
	rebuildNote string

	// sidebar state
	sidebarOpen bool
	sidebarIdx  int
	sessions    []store.Session

	// confirmDelete holds the session id armed for deletion; a second
	// delete press within the sidebar commits it.
	confirmDelete string

	// optional search index, kept in step with deletions
	index *history.Index

	// renaming repurposes the input box for a new conversation title.
	renaming bool

	// one-shot notice under the input (export path, errors)
	notice string
}

// New creates the chat screen over an already-booted manager.
func New(cfg *config.Config, manager *store.Manager, orch *orchestrator.Orchestrator, client *backend.Client, sink *eventSink) *Model {
	input := textarea.New()
	input.Placeholder = inputPlaceholder
	input.CharLimit = 4000
	input.SetHeight(2)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Teal)

	prog := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	return &Model{
		cfg:     cfg,
		theme:   styles.NewTheme(),
		keys:    defaultKeyMap(),
		manager: manager,
		orch:    orch,
		client:  client,
		sink:    sink,
		input:   input,
		spin:    spin,
		prog:    prog,
	}
}

// WithHistoryIndex keeps the search index in step with deletions made
// from the sidebar.
func (m *Model) WithHistoryIndex(ix *history.Index) *Model {
	m.index = ix
	return m
}

// NewSink creates the event sink to wire an orchestrator to this screen.
func NewSink() *eventSink {
	return newEventSink()
}

// Sink returns the sink as the orchestrator-facing interface.
func (s *eventSink) AsOrchestratorSink() orchestrator.Sink {
	return s
}

// Push feeds an external event (store watcher) into the screen's loop.
func (s *eventSink) Push(msg tea.Msg) {
	s.post(msg)
}

// PushStoreChanged signals an external rewrite of the session file.
func (s *eventSink) PushStoreChanged() {
	s.post(storeChangedMsg{})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.refreshSessions()
	return tea.Batch(
		m.fetchStatusCmd(),
		m.spin.Tick,
		textarea.Blink,
		m.waitEvent(),
	)
}

// waitEvent blocks on the next turn/rebuild/store event.
func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.sink.ch
	}
}

// refreshSessions reloads the sidebar listing and clamps the cursor.
func (m *Model) refreshSessions() {
	m.sessions = m.manager.Sessions()
	if m.sidebarIdx >= len(m.sessions) {
		m.sidebarIdx = len(m.sessions) - 1
	}
	if m.sidebarIdx < 0 {
		m.sidebarIdx = 0
	}
}

// rebuildGlamour recreates the markdown renderer for the current width.
func (m *Model) rebuildGlamour() {
	wrap := m.transcriptWidth() - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(wrap),
	)
	if err == nil {
		m.glam = r
	}
}

// transcriptWidth is the viewport width given the sidebar state.
func (m *Model) transcriptWidth() int {
	w := m.width
	if m.sidebarOpen {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// renderMarkdown renders assistant markdown for the terminal, falling back
// to the raw text when the renderer is unavailable.
func (m *Model) renderMarkdown(text string) string {
	if m.glam == nil {
		return text
	}
	out, err := m.glam.Render(text)
	if err != nil {
		return text
	}
	return out
}

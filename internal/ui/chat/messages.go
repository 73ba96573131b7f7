// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/poller"
)

// ===== TURN EVENTS =====

// turnPendingMsg signals that the assistant placeholder appeared.
type turnPendingMsg struct{}

// turnRevealMsg carries the currently visible slice of the answer.
type turnRevealMsg struct {
	Visible string
}

// turnSourcesMsg carries the retrieval citations for the settling turn.
type turnSourcesMsg struct {
	Sources []backend.Source
	Context string
}

// turnFinalizedMsg signals the end of a successful turn.
type turnFinalizedMsg struct {
	HTML      string
	Cancelled bool
}

// turnFailedMsg signals a turn that ended in an error.
type turnFailedMsg struct {
	Err error
}

// ===== BACKEND EVENTS =====

// statusMsg carries a backend status snapshot (or the failure to get one).
type statusMsg struct {
	Status *backend.Status
	Err    error
}

// rebuildStartedMsg acknowledges a triggered rebuild.
type rebuildStartedMsg struct {
	Ack *backend.RebuildAck
	Err error
}

// rebuildUpdateMsg forwards one poller transition.
type rebuildUpdateMsg struct {
	Update poller.Update
}

// ===== STORE EVENTS =====

// storeChangedMsg signals that another process rewrote the session file.
type storeChangedMsg struct{}

// ===== EVENT CHANNEL =====

// eventSink forwards orchestrator callbacks into the Bubble Tea loop
// through a channel the model drains with waitEvent.
type eventSink struct {
	ch chan tea.Msg
}

func newEventSink() *eventSink {
	// Buffered generously; reveal ticks arrive at animation rate.
	return &eventSink{ch: make(chan tea.Msg, 256)}
}

// post delivers a droppable frame: when the loop lags, intermediate
// reveal frames are skipped rather than blocking the turn.
func (s *eventSink) post(msg tea.Msg) {
	select {
	case s.ch <- msg:
	default:
	}
}

// mustPost delivers a state transition that may not be lost.
func (s *eventSink) mustPost(msg tea.Msg) {
	s.ch <- msg
}

// eventSink implements orchestrator.Sink.

func (s *eventSink) Pending(_ *model.Message) {
	s.mustPost(turnPendingMsg{})
}

func (s *eventSink) Reveal(_ *model.Message, visible string) {
	s.post(turnRevealMsg{Visible: visible})
}

func (s *eventSink) Sources(_ *model.Message, sources []backend.Source, contextText string) {
	s.mustPost(turnSourcesMsg{Sources: sources, Context: contextText})
}

func (s *eventSink) Finalized(_ *model.Message, html string, cancelled bool) {
	s.mustPost(turnFinalizedMsg{HTML: html, Cancelled: cancelled})
}

func (s *eventSink) Failed(_ *model.Message, err error) {
	s.mustPost(turnFailedMsg{Err: err})
}

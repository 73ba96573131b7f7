// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/poller"
	"github.com/jeranaias/ragdesk/internal/store"
)

func newSidebarModel(t *testing.T) *Model {
	t.Helper()
	st, err := store.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := store.NewManager(st, model.NewTranscript())
	if err := mgr.Boot(); err != nil {
		t.Fatal(err)
	}
	// A second conversation so the sidebar has a non-current entry.
	if err := mgr.StartNew(); err != nil {
		t.Fatal(err)
	}

	m := New(&config.Config{}, mgr, nil, nil, NewSink())
	m.sidebarOpen = true
	m.refreshSessions()
	return m
}

func TestSidebarDeleteNeedsSecondPress(t *testing.T) {
	m := newSidebarModel(t)
	if len(m.sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(m.sessions))
	}
	m.sidebarIdx = 1
	target := m.sessions[1].ID

	del := tea.KeyMsg{Type: tea.KeyCtrlD}
	m.handleSidebarKey(del)

	if got := len(m.manager.Sessions()); got != 2 {
		t.Fatalf("first press deleted the session; %d left", got)
	}
	if m.confirmDelete != target {
		t.Fatalf("first press should arm deletion of %s, armed %q", target, m.confirmDelete)
	}
	if m.notice == "" {
		t.Fatal("arming should explain the second press")
	}

	m.handleSidebarKey(del)
	if got := len(m.manager.Sessions()); got != 1 {
		t.Fatalf("second press should delete; %d sessions left", got)
	}
	if m.confirmDelete != "" {
		t.Fatal("confirmation should disarm after the delete")
	}
}

func TestSidebarDeleteDisarmsOnCursorMove(t *testing.T) {
	m := newSidebarModel(t)
	m.sidebarIdx = 1

	m.handleSidebarKey(tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.confirmDelete == "" {
		t.Fatal("expected an armed delete")
	}

	m.handleSidebarKey(tea.KeyMsg{Type: tea.KeyUp})
	if m.confirmDelete != "" {
		t.Fatal("moving the cursor should disarm the delete")
	}
	if got := len(m.manager.Sessions()); got != 2 {
		t.Fatalf("nothing should be deleted; %d sessions left", got)
	}
}

func TestRebuildRetryShowsNote(t *testing.T) {
	m := newSidebarModel(t)
	m.rebuilding = true

	m.handleRebuildUpdate(poller.Update{
		Event: poller.EventProgress,
		Job:   &backend.RebuildJob{Running: true, Stage: "embedding"},
	})
	if m.rebuildNote != "" {
		t.Fatalf("progress should clear the note, got %q", m.rebuildNote)
	}

	m.handleRebuildUpdate(poller.Update{
		Event: poller.EventRetry,
		Err:   errors.New("connection refused"),
	})
	if !strings.Contains(m.rebuildNote, "connection refused") {
		t.Fatalf("retry note should carry the poll error, got %q", m.rebuildNote)
	}

	m.handleRebuildUpdate(poller.Update{
		Event: poller.EventProgress,
		Job:   &backend.RebuildJob{Running: true, Stage: "embedding"},
	})
	if m.rebuildNote != "" {
		t.Fatalf("recovery should clear the note, got %q", m.rebuildNote)
	}
}

func TestSidebarDeleteRemovesFromIndex(t *testing.T) {
	m := newSidebarModel(t)
	ix, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	m.WithHistoryIndex(ix)

	m.sidebarIdx = 1
	target := m.sessions[1]
	target.Messages = []store.StoredMessage{
		{Role: "user", Content: "indexed words"},
	}
	if err := ix.IndexSession(&target); err != nil {
		t.Fatal(err)
	}
	if n, _ := ix.Count(); n != 1 {
		t.Fatalf("expected 1 indexed message, got %d", n)
	}

	del := tea.KeyMsg{Type: tea.KeyCtrlD}
	m.handleSidebarKey(del)
	m.handleSidebarKey(del)

	if n, _ := ix.Count(); n != 0 {
		t.Fatalf("deleted session should leave the index; %d rows remain", n)
	}
}

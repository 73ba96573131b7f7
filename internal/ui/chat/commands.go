// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/export"
	"github.com/jeranaias/ragdesk/internal/poller"
)

// fetchStatusCmd queries the backend status snapshot.
func (m *Model) fetchStatusCmd() tea.Cmd {
	return func() tea.Msg {
		st, err := m.client.Status(context.Background())
		return statusMsg{Status: st, Err: err}
	}
}

// sendCmd runs a chat turn in the background. Progress arrives through the
// event sink; the command itself completes immediately.
func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		go func() {
			// Rejections (busy, empty) surface as turn failures so the
			// loop has a single path for settling the input state.
			if err := m.orch.Send(context.Background(), text); err != nil {
				m.sink.mustPost(turnFailedMsg{Err: err})
			}
		}()
		return nil
	}
}

// rebuildCmd triggers the knowledge-base rebuild and starts the progress
// watch. Poller updates arrive through the event sink.
func (m *Model) rebuildCmd() tea.Cmd {
	return func() tea.Msg {
		ack, err := m.client.Rebuild(context.Background(), nil)
		if err != nil {
			return rebuildStartedMsg{Err: err}
		}

		updates := make(chan poller.Update, 16)
		go poller.Run(context.Background(), m.client, updates)
		go func() {
			for up := range updates {
				m.sink.mustPost(rebuildUpdateMsg{Update: up})
			}
		}()

		return rebuildStartedMsg{Ack: ack}
	}
}

// exportCmd writes the current conversation to a Markdown file in the
// working directory.
func (m *Model) exportCmd() tea.Cmd {
	return func() tea.Msg {
		state := m.manager.Sessions()
		currentID := m.manager.CurrentID()
		for i := range state {
			if state[i].ID == currentID {
				path, err := export.ExportMarkdown(&state[i], nil)
				if err != nil {
					return turnFailedMsg{Err: err}
				}
				return exportedMsg{Path: path}
			}
		}
		return nil
	}
}

// exportedMsg reports a finished export.
type exportedMsg struct {
	Path string
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ragdesk/internal/poller"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnPendingMsg:
		m.busy = true
		m.revealText = ""
		m.notice = ""
		m.sources = nil
		m.contextText = ""
		m.syncTranscript()
		return m, m.waitEvent()

	case turnSourcesMsg:
		m.sources = msg.Sources
		m.contextText = msg.Context
		return m, m.waitEvent()

	case turnRevealMsg:
		m.revealText = msg.Visible
		m.syncTranscript()
		return m, m.waitEvent()

	case turnFinalizedMsg:
		m.busy = false
		m.revealText = ""
		m.refreshSessions()
		m.syncTranscript()
		return m, m.waitEvent()

	case turnFailedMsg:
		m.busy = false
		m.revealText = ""
		if msg.Err != nil {
			m.notice = m.theme.ErrorText.Render(msg.Err.Error())
		}
		m.refreshSessions()
		m.syncTranscript()
		return m, m.waitEvent()

	case statusMsg:
		m.status = msg.Status
		m.statusErr = msg.Err
		return m, nil

	case rebuildStartedMsg:
		if msg.Err != nil {
			m.notice = m.theme.ErrorText.Render("rebuild: " + msg.Err.Error())
			return m, nil
		}
		m.rebuilding = true
		m.rebuildJob = nil
		m.rebuildErr = ""
		return m, nil

	case rebuildUpdateMsg:
		return m.handleRebuildUpdate(msg.Update)

	case storeChangedMsg:
		m.refreshSessions()
		return m, m.waitEvent()

	case exportedMsg:
		m.notice = "exported to " + msg.Path
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m.updateComponents(msg)
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.Resize(msg.Width, msg.Height)

	chromeRows := 6 // header + input + status bar + borders
	vpHeight := msg.Height - chromeRows
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(m.transcriptWidth(), vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = m.transcriptWidth()
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(m.transcriptWidth() - 4)
	m.prog.Width = m.transcriptWidth() - 20

	m.rebuildGlamour()
	m.syncTranscript()
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		// Best effort final persist; losing it only costs the last turn.
		_ = m.manager.PersistCurrent()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.busy {
			m.orch.Abort()
			return m, nil
		}
		if m.renaming {
			m.renaming = false
			m.input.Reset()
			m.input.Placeholder = inputPlaceholder
			m.notice = ""
			return m, nil
		}
		if m.sidebarOpen {
			m.sidebarOpen = false
			return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.sidebarOpen = !m.sidebarOpen
		m.refreshSessions()
		return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})

	case key.Matches(msg, m.keys.NewChat):
		if err := m.manager.StartNew(); err != nil {
			m.notice = m.theme.ErrorText.Render(err.Error())
		}
		m.sources = nil
		m.contextText = ""
		m.refreshSessions()
		m.syncTranscript()
		return m, nil

	case key.Matches(msg, m.keys.Rebuild):
		if m.rebuilding {
			return m, nil
		}
		return m, m.rebuildCmd()

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Rename):
		if m.busy || m.renaming {
			return m, nil
		}
		m.renaming = true
		m.input.Reset()
		m.input.Placeholder = "New title…"
		m.notice = "renaming: enter a title, esc to cancel"
		return m, nil
	}

	if m.sidebarOpen {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) {
		text := strings.TrimSpace(m.input.Value())
		if m.renaming {
			m.renaming = false
			m.input.Reset()
			m.input.Placeholder = inputPlaceholder
			m.notice = ""
			if text != "" {
				if err := m.manager.Rename(m.manager.CurrentID(), text); err != nil {
					m.notice = m.theme.ErrorText.Render(err.Error())
				}
				m.refreshSessions()
			}
			return m, nil
		}
		if text == "" || m.busy {
			return m, nil
		}
		m.input.Reset()
		return m, m.sendCmd(text)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.sidebarIdx > 0 {
			m.sidebarIdx--
		}
		m.disarmDelete()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.sidebarIdx < len(m.sessions)-1 {
			m.sidebarIdx++
		}
		m.disarmDelete()
		return m, nil

	case key.Matches(msg, m.keys.Send):
		m.disarmDelete()
		if m.sidebarIdx < len(m.sessions) {
			if err := m.manager.SwitchTo(m.sessions[m.sidebarIdx].ID); err != nil {
				m.notice = m.theme.ErrorText.Render(err.Error())
			}
			m.busy = false
			m.revealText = ""
			m.sources = nil
			m.contextText = ""
			m.sidebarOpen = false
			m.refreshSessions()
			m.syncTranscript()
			return m.handleResize(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if m.sidebarIdx >= len(m.sessions) {
			return m, nil
		}
		target := m.sessions[m.sidebarIdx]

		// Deletion is irreversible; the first press only arms it.
		if m.confirmDelete != target.ID {
			m.confirmDelete = target.ID
			m.notice = fmt.Sprintf("press ctrl+d again to delete %q", sessionLine(target.Title, 30))
			return m, nil
		}

		m.disarmDelete()
		if err := m.manager.Delete(target.ID); err != nil {
			m.notice = m.theme.ErrorText.Render(err.Error())
		} else if m.index != nil {
			_ = m.index.RemoveSession(target.ID)
		}
		m.sources = nil
		m.contextText = ""
		m.refreshSessions()
		m.syncTranscript()
		return m, nil
	}

	m.disarmDelete()
	return m, nil
}

// disarmDelete clears a pending delete confirmation.
func (m *Model) disarmDelete() {
	if m.confirmDelete != "" {
		m.confirmDelete = ""
		m.notice = ""
	}
}

func (m *Model) handleRebuildUpdate(up poller.Update) (tea.Model, tea.Cmd) {
	switch up.Event {
	case poller.EventProgress:
		m.rebuildJob = up.Job
		m.rebuildNote = ""

	case poller.EventRetry:
		// Keep the last snapshot on screen, note the failed poll.
		m.rebuildNote = "poll failed: " + up.Err.Error() + ", retrying"

	case poller.EventDone:
		m.rebuilding = false
		m.rebuildJob = up.Job
		m.rebuildNote = ""
		if up.Job != nil && !up.Job.Succeeded() {
			m.rebuildErr = up.Job.LastError
		}
		if up.Status != nil {
			m.status = up.Status
			m.statusErr = nil
		}

	case poller.EventAbandoned:
		m.rebuilding = false
		m.rebuildNote = ""
		m.rebuildErr = "lost contact with the backend during rebuild"
	}
	return m, m.waitEvent()
}

// updateComponents forwards remaining messages to the focused widgets.
func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if !m.sidebarOpen {
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

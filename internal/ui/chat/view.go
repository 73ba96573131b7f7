// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/orchestrator"
)

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "starting…"
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		m.viewport.View(),
		m.viewRebuild(),
		m.viewInput(),
		m.viewStatusBar(),
	)

	if m.sidebarOpen {
		return lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), main)
	}
	return main
}

// ===== TRANSCRIPT =====

// syncTranscript re-renders the conversation into the viewport and keeps
// the scroll pinned to the bottom.
func (m *Model) syncTranscript() {
	if !m.ready {
		return
	}

	var sb strings.Builder
	width := m.transcriptWidth() - 4

	for _, msg := range m.manager.Transcript().Messages() {
		if !msg.Complete {
			continue
		}
		sb.WriteString(m.renderBubble(msg, width))
		sb.WriteString("\n")
	}

	if m.busy {
		sb.WriteString(m.renderLiveBubble(width))
		sb.WriteString("\n")
	} else if len(m.sources) > 0 || m.contextText != "" {
		sb.WriteString(m.renderRetrieval(width))
		sb.WriteString("\n")
	}

	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderBubble(msg *model.Message, width int) string {
	var body, label string
	style := m.theme.AssistantBubble

	switch msg.Role {
	case model.RoleUser:
		label = "You"
		style = m.theme.UserBubble
		body = msg.Content
	default:
		label = "Assistant"
		body = m.renderMarkdown(msg.Content)
	}

	out := style.Width(width).Render(strings.TrimRight(body, "\n"))
	header := m.theme.MetaLine.Render(label)
	if msg.Meta != "" {
		header += m.theme.MetaLine.Render(" · " + msg.Meta)
	}
	return header + "\n" + out + "\n"
}

// renderLiveBubble shows the in-flight turn: a spinner while awaiting the
// backend, the plain revealed prefix while streaming. Markdown rendering
// waits for the finalized answer.
func (m *Model) renderLiveBubble(width int) string {
	header := m.theme.MetaLine.Render("Assistant")
	var body string
	if m.revealText == "" {
		body = m.spin.View() + " thinking…"
	} else {
		body = m.revealText + "▌"
	}
	return header + "\n" + m.theme.AssistantBubble.Width(width).Render(body) + "\n"
}

// renderRetrieval shows the citations and optional context text for the
// latest settled turn, under its bubble.
func (m *Model) renderRetrieval(width int) string {
	var sb strings.Builder
	if len(m.sources) > 0 {
		sb.WriteString(m.theme.MetaLine.Render("Sources"))
		sb.WriteString("\n")
		sb.WriteString(m.theme.ShortcutDesc.Render(orchestrator.FormatSourceList(m.sources)))
		sb.WriteString("\n")
	}
	if m.contextText != "" {
		sb.WriteString(m.theme.MetaLine.Render("Context"))
		sb.WriteString("\n")
		sb.WriteString(m.theme.ShortcutDesc.Width(width).Render(m.contextText))
		sb.WriteString("\n")
	}
	return sb.String()
}

// ===== CHROME =====

func (m *Model) viewHeader() string {
	title := m.theme.HeaderTitle.Render("ragdesk")
	conv := m.manager.CurrentTitle()

	var status string
	switch {
	case m.statusErr != nil:
		status = m.theme.StatusError.Render("backend offline")
	case m.status != nil:
		status = m.theme.StatusHealthy.Render(
			fmt.Sprintf("%s · %d chunks", m.status.Model, m.status.CollectionCount))
	default:
		status = m.theme.ShortcutDesc.Render("connecting…")
	}

	left := title + "  " + conv
	gap := m.transcriptWidth() - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.transcriptWidth()).Render(
		left + strings.Repeat(" ", gap) + status)
}

func (m *Model) viewRebuild() string {
	if !m.rebuilding && m.rebuildErr == "" {
		return ""
	}
	if m.rebuildErr != "" {
		return m.theme.ErrorText.Render(" rebuild failed: " + m.rebuildErr)
	}

	label := " rebuilding"
	pct := 0.0
	if m.rebuildJob != nil {
		if m.rebuildJob.Stage != "" {
			label = " " + m.rebuildJob.Stage
		}
		pct = float64(m.rebuildJob.Percent) / 100
		if m.rebuildJob.Total > 0 {
			label += fmt.Sprintf(" %d/%d", m.rebuildJob.Current, m.rebuildJob.Total)
		}
	}
	line := m.theme.ProgressLabel.Render(label) + " " + m.prog.ViewAs(pct)
	if tail := m.rebuildJob.LastLog(); tail != "" {
		line += "\n" + m.theme.ShortcutDesc.Render(" "+tail)
	}
	if m.rebuildNote != "" {
		line += "\n" + m.theme.StatusWarn.Render(" "+m.rebuildNote)
	}
	return line
}

func (m *Model) viewInput() string {
	box := m.theme.InputContainer.Width(m.transcriptWidth() - 2).Render(m.input.View())
	if m.notice != "" {
		return box + "\n" + " " + m.notice
	}
	return box
}

func (m *Model) viewStatusBar() string {
	type hint struct{ key, desc string }
	hints := []hint{
		{"enter", "send"},
		{"esc", "stop"},
		{"ctrl+n", "new"},
		{"ctrl+s", "sessions"},
		{"ctrl+r", "rebuild"},
		{"ctrl+e", "export"},
		{"ctrl+t", "rename"},
		{"ctrl+c", "quit"},
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts,
			m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	return m.theme.StatusBar.Width(m.transcriptWidth()).Render(strings.Join(parts, "  "))
}

// ===== SIDEBAR =====

func (m *Model) viewSidebar() string {
	var sb strings.Builder
	sb.WriteString(m.theme.SidebarTitle.Render("Conversations"))
	sb.WriteString("\n\n")

	currentID := m.manager.CurrentID()
	for i, sess := range m.sessions {
		line := sessionLine(sess.Title, sidebarWidth-4)
		if sess.ID == currentID {
			line = "● " + line
		} else {
			line = "  " + line
		}
		if i == m.sidebarIdx {
			sb.WriteString(m.theme.SessionItemSelected.Render(line))
		} else {
			sb.WriteString(m.theme.SessionItem.Render(line))
		}
		sb.WriteString("\n")
	}

	if len(m.sessions) == 0 {
		sb.WriteString(m.theme.ShortcutDesc.Render("  (empty)"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.theme.ShortcutDesc.Render("enter open · ctrl+d del"))

	return m.theme.Sidebar.
		Width(sidebarWidth).
		Height(m.height - 1).
		Render(sb.String())
}

// sessionLine truncates a title to the sidebar column width.
func sessionLine(title string, width int) string {
	if title == "" {
		title = "Untitled"
	}
	if runewidth.StringWidth(title) <= width {
		return title
	}
	return runewidth.Truncate(title, width-1, "") + "…"
}

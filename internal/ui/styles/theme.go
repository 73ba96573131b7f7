// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability once and the styles adapt from there.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER / STATUS BAR
	// ==========================================================================

	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	StatusBar     lipgloss.Style
	StatusHealthy lipgloss.Style
	StatusWarn    lipgloss.Style
	StatusError   lipgloss.Style
	ShortcutKey   lipgloss.Style
	ShortcutDesc  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	MetaLine        lipgloss.Style
	StoppedMarker   lipgloss.Style

	// ==========================================================================
	// SIDEBAR (SESSION LIST)
	// ==========================================================================

	Sidebar             lipgloss.Style
	SidebarTitle        lipgloss.Style
	SessionItem         lipgloss.Style
	SessionItemSelected lipgloss.Style

	// ==========================================================================
	// INPUT / PROGRESS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	ProgressLabel  lipgloss.Style
	ErrorText      lipgloss.Style
}

// NewTheme creates a theme for the detected terminal.
func NewTheme() *Theme {
	output := termenv.DefaultOutput()

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		ColorProfile: output.Profile,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextPrimary).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusHealthy = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.StatusWarn = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Teal).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1)
	t.MetaLine = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.StoppedMarker = lipgloss.NewStyle().Foreground(Amber).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, true, false, false).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.SessionItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SessionItemSelected = lipgloss.NewStyle().
		Foreground(Teal).
		Bold(true).
		Reverse(true)

	t.InputContainer = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	t.ProgressLabel = lipgloss.NewStyle().Foreground(Amber)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)

	return t
}

// Resize records the current terminal dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
}

// GlamourStyle returns the glamour style name matching the detected
// background.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ===== BLOCKING RUNNER =====

// Options configures a Play run.
type Options struct {
	// CharsPerSecond is the reveal rate. Zero means DefaultCharsPerSecond.
	CharsPerSecond float64

	// Interval is the tick cadence. Zero means TickInterval.
	Interval time.Duration

	// Token aborts the reveal when set. Nil means not cancellable.
	Token *Token
}

// Play reveals full progressively, calling show with the visible text after
// every tick. It blocks until the reveal finishes or the token is set. On
// cancellation the last show call carries the partial prefix with
// CancelMarker appended, and Play returns the raw prefix plus cancelled=true.
// The caller decides what to do with the outcome; typically only an
// uncancelled reveal is rendered as markdown afterwards.
func Play(full string, opts Options, show func(visible string)) (revealed string, cancelled bool) {
	interval := opts.Interval
	if interval <= 0 {
		interval = TickInterval
	}
	r := NewReveal(full, opts.CharsPerSecond, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		now := <-ticker.C
		if opts.Token.Cancelled() {
			partial := r.Shown()
			show(partial + CancelMarker)
			return partial, true
		}
		prefix, done := r.Advance(now)
		show(prefix)
		if done {
			return prefix, false
		}
	}
}

// ===== BUBBLE TEA GLUE =====

// TickMsg drives a Reveal owned by a Bubble Tea model. The model calls
// Advance with the embedded time on each one.
type TickMsg struct {
	Time time.Time
}

// TickCmd schedules the next TickMsg one TickInterval out.
func TickCmd() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

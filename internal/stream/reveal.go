// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "time"

// ===== PACING CONSTANTS =====

const (
	// DefaultCharsPerSecond is the reveal rate when the caller does not
	// supply one.
	DefaultCharsPerSecond = 45.0

	// TickInterval is the cadence at which the runner re-evaluates the
	// reveal. Close to one animation frame.
	TickInterval = 16 * time.Millisecond
)

// CancelMarker is appended to the visible text when a reveal is aborted
// mid-flight. The partial prefix stays on screen above it.
const CancelMarker = "\n\n(stopped)"

// ===== REVEAL =====

// Reveal paces the disclosure of an already-complete answer. It is a pure
// state machine: it holds no timers and does no I/O, the caller feeds it
// clock readings through Advance. The pacing rule is wall-clock anchored,
// floor(elapsed*cps) characters since start, so a stalled caller catches
// up in one step instead of drifting. Every Advance call moves forward by
// at least one character, which guarantees termination even with a zero
// rate or a frozen clock.
type Reveal struct {
	text  []rune
	cps   float64
	start time.Time
	shown int
}

// NewReveal starts a reveal of text at cps characters per second, anchored
// at start. A non-positive cps falls back to DefaultCharsPerSecond.
func NewReveal(text string, cps float64, start time.Time) *Reveal {
	if cps <= 0 {
		cps = DefaultCharsPerSecond
	}
	return &Reveal{
		text:  []rune(text),
		cps:   cps,
		start: start,
	}
}

// Advance moves the reveal to where the clock says it should be and
// returns the visible prefix plus a done flag. The prefix length is
// monotonically non-decreasing across calls regardless of the now values
// supplied.
func (r *Reveal) Advance(now time.Time) (prefix string, done bool) {
	if r.shown >= len(r.text) {
		return string(r.text), true
	}
	target := int(now.Sub(r.start).Seconds() * r.cps)
	if target <= r.shown {
		target = r.shown + 1
	}
	if target > len(r.text) {
		target = len(r.text)
	}
	r.shown = target
	return string(r.text[:r.shown]), r.shown == len(r.text)
}

// Shown returns the currently visible prefix without advancing.
func (r *Reveal) Shown() string {
	return string(r.text[:r.shown])
}

// Done reports whether the full text has been revealed.
func (r *Reveal) Done() bool {
	return r.shown >= len(r.text)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements the simulated token-by-token reveal of a
// finished answer.
package stream

import "sync/atomic"

// Token is a shared cancellation token. The orchestrator sets it when the
// user aborts; the reveal loop observes it on its next tick. Cancellation
// is cooperative, never preemptive: whoever holds a completed response
// still finishes writing the cancellation marker before yielding.
type Token struct {
	cancelled atomic.Bool
}

// NewToken creates an unset token.
func NewToken() *Token {
	return &Token{}
}

// Cancel sets the token. Safe to call from any goroutine, repeatedly.
func (t *Token) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

// Cancelled reports whether the token has been set.
func (t *Token) Cancelled() bool {
	return t != nil && t.cancelled.Load()
}

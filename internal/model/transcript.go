// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and messages.
package model

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/ragdesk/internal/backend"
)

// DefaultTitle is used when no user message can supply a title.
const DefaultTitle = "New conversation"

// TitleWidth is the display-cell budget for auto-derived titles.
const TitleWidth = 18

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the live, in-memory message sequence for the current
// conversation. It carries the dirty flag that drives write-avoidance in the
// session store: appending marks dirty unless suppression is active (bulk
// restore from the store must not itself look like a change).
type Transcript struct {
	messages []*Message

	dirty    bool
	suppress bool
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]*Message, 0)}
}

// =============================================================================
// APPEND / FINALIZE
// =============================================================================

// Append creates a complete message, appends it, and marks the transcript
// dirty unless suppression is active. The created message is returned so the
// caller can attach a trailing meta line later.
func (t *Transcript) Append(role Role, content, meta string) *Message {
	msg := NewMessage(role, content, meta)
	t.messages = append(t.messages, msg)
	if !t.suppress {
		t.dirty = true
	}
	return msg
}

// AppendPending creates an incomplete assistant placeholder and appends it.
// Pending messages are invisible to History and to persistence until
// finalized.
func (t *Transcript) AppendPending() *Message {
	msg := NewPendingMessage()
	t.messages = append(t.messages, msg)
	return msg
}

// Finalize sets the content of a pending message and marks it complete.
func (t *Transcript) Finalize(msg *Message, finalText string) {
	if msg == nil || msg.Complete {
		return
	}
	msg.Content = finalText
	msg.Complete = true
	if !t.suppress {
		t.dirty = true
	}
}

// Clear removes all messages without touching the dirty flag.
func (t *Transcript) Clear() {
	t.messages = make([]*Message, 0)
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// Messages returns the ordered message sequence, pending included.
func (t *Transcript) Messages() []*Message {
	return t.messages
}

// Complete returns only the complete messages, in transcript order.
func (t *Transcript) Complete() []*Message {
	out := make([]*Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.Complete {
			out = append(out, m)
		}
	}
	return out
}

// History derives the backend conversation-history argument: complete
// messages only, in order, reduced to role and content.
func (t *Transcript) History() []backend.ChatMessage {
	out := make([]backend.ChatMessage, 0, len(t.messages))
	for _, m := range t.messages {
		if !m.Complete {
			continue
		}
		out = append(out, backend.ChatMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}
	return out
}

// Len returns the number of messages, pending included.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// IsEmpty returns true if there are no messages at all.
func (t *Transcript) IsEmpty() bool {
	return len(t.messages) == 0
}

// =============================================================================
// DIRTY TRACKING
// =============================================================================

// Dirty reports whether the transcript has unpersisted changes.
func (t *Transcript) Dirty() bool {
	return t.dirty
}

// MarkDirty forces the dirty flag on.
func (t *Transcript) MarkDirty() {
	t.dirty = true
}

// ClearDirty resets the dirty flag after a successful persist.
func (t *Transcript) ClearDirty() {
	t.dirty = false
}

// WithSuppressedDirty runs fn with dirty-marking disabled, then restores the
// previous suppression state. Used when restoring a conversation from the
// store.
func (t *Transcript) WithSuppressedDirty(fn func()) {
	prev := t.suppress
	t.suppress = true
	fn()
	t.suppress = prev
	t.dirty = false
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle returns a conversation title from the first user message with
// non-empty trimmed content: at most TitleWidth display cells, with an
// ellipsis appended when truncated. Falls back to DefaultTitle.
func DeriveTitle(messages []*Message) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		base := strings.TrimSpace(m.Content)
		if base == "" {
			continue
		}
		if runewidth.StringWidth(base) <= TitleWidth {
			return base
		}
		return runewidth.Truncate(base, TitleWidth, "") + "…"
	}
	return DefaultTitle
}

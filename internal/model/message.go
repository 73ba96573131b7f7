// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for transcripts and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single chat turn. A message with Complete=false is a
// mid-stream assistant placeholder: it never appears in derived history and
// is never persisted. Once Complete is set the content is fixed; only the
// meta line may still be appended to (latency / stopped / error tags).
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Meta      string    `json:"meta"`
	Complete  bool      `json:"complete"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a complete message with a generated ID.
func NewMessage(role Role, content, meta string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Meta:      meta,
		Complete:  true,
		Timestamp: time.Now(),
	}
}

// NewPendingMessage creates an incomplete assistant placeholder.
func NewPendingMessage() *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
	}
}

// AppendMeta attaches (or extends) the trailing meta line.
func (m *Message) AppendMeta(meta string) {
	if m.Meta == "" {
		m.Meta = meta
		return
	}
	m.Meta += " · " + meta
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Content == ""
}

// Preview returns a single-line truncated preview of the message content.
func (m *Message) Preview(maxRunes int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes-3]) + "..."
}

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}

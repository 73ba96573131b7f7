// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "hello", "sent 10:00:00")

	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if !msg.Complete {
		t.Error("NewMessage should be complete")
	}
	if msg.Content != "hello" || msg.Meta != "sent 10:00:00" {
		t.Errorf("unexpected content/meta: %q / %q", msg.Content, msg.Meta)
	}
}

func TestNewPendingMessage(t *testing.T) {
	msg := NewPendingMessage()

	if msg.Complete {
		t.Error("pending message must not be complete")
	}
	if msg.Role != RoleAssistant {
		t.Errorf("pending role = %q, want assistant", msg.Role)
	}
}

func TestMessage_AppendMeta(t *testing.T) {
	msg := NewMessage(RoleAssistant, "hi", "")
	msg.AppendMeta("latency 120ms")
	if msg.Meta != "latency 120ms" {
		t.Errorf("Meta = %q", msg.Meta)
	}
	msg.AppendMeta("10:00:00")
	if msg.Meta != "latency 120ms · 10:00:00" {
		t.Errorf("Meta = %q", msg.Meta)
	}
}

// =============================================================================
// TRANSCRIPT TESTS
// =============================================================================

func TestTranscript_AppendMarksDirty(t *testing.T) {
	tr := NewTranscript()
	if tr.Dirty() {
		t.Error("fresh transcript should be clean")
	}

	tr.Append(RoleUser, "hello", "")
	if !tr.Dirty() {
		t.Error("append should mark dirty")
	}
}

func TestTranscript_SuppressedLoadStaysClean(t *testing.T) {
	tr := NewTranscript()
	tr.WithSuppressedDirty(func() {
		tr.Append(RoleUser, "restored", "")
		tr.Append(RoleAssistant, "also restored", "")
	})

	if tr.Dirty() {
		t.Error("bulk load must not mark dirty")
	}
	if tr.Len() != 2 {
		t.Errorf("Len = %d, want 2", tr.Len())
	}
}

func TestTranscript_HistoryExcludesPending(t *testing.T) {
	tr := NewTranscript()
	tr.Append(RoleUser, "question", "")
	pending := tr.AppendPending()

	history := tr.History()
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "question" {
		t.Errorf("history[0] = %+v", history[0])
	}

	tr.Finalize(pending, "answer")
	history = tr.History()
	if len(history) != 2 {
		t.Fatalf("history length after finalize = %d, want 2", len(history))
	}
	if history[1].Role != "assistant" || history[1].Content != "answer" {
		t.Errorf("history[1] = %+v", history[1])
	}
}

func TestTranscript_FinalizeIsIdempotent(t *testing.T) {
	tr := NewTranscript()
	pending := tr.AppendPending()
	tr.Finalize(pending, "first")
	tr.Finalize(pending, "second")

	if pending.Content != "first" {
		t.Errorf("Content = %q, want %q (complete messages are immutable)", pending.Content, "first")
	}
}

func TestTranscript_ClearDirty(t *testing.T) {
	tr := NewTranscript()
	tr.Append(RoleUser, "x", "")
	tr.ClearDirty()
	if tr.Dirty() {
		t.Error("ClearDirty failed")
	}
}

// =============================================================================
// TITLE DERIVATION TESTS
// =============================================================================

func TestDeriveTitle_Empty(t *testing.T) {
	if got := DeriveTitle(nil); got != DefaultTitle {
		t.Errorf("DeriveTitle(nil) = %q, want %q", got, DefaultTitle)
	}
	if got := DeriveTitle([]*Message{}); got != DefaultTitle {
		t.Errorf("DeriveTitle(empty) = %q, want %q", got, DefaultTitle)
	}
}

func TestDeriveTitle_SkipsBlankAndAssistant(t *testing.T) {
	msgs := []*Message{
		NewMessage(RoleAssistant, "welcome", ""),
		NewMessage(RoleUser, "   ", ""),
		NewMessage(RoleUser, "real question", ""),
	}
	if got := DeriveTitle(msgs); got != "real question" {
		t.Errorf("DeriveTitle = %q, want %q", got, "real question")
	}
}

func TestDeriveTitle_TruncatesTo18CellsPlusEllipsis(t *testing.T) {
	long := strings.Repeat("a", 40)
	got := DeriveTitle([]*Message{NewMessage(RoleUser, long, "")})

	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
	base := strings.TrimSuffix(got, "…")
	if runewidth.StringWidth(base) != TitleWidth {
		t.Errorf("title base width = %d, want %d", runewidth.StringWidth(base), TitleWidth)
	}
}

func TestDeriveTitle_ShortTitleUntouched(t *testing.T) {
	got := DeriveTitle([]*Message{NewMessage(RoleUser, " hello ", "")})
	if got != "hello" {
		t.Errorf("DeriveTitle = %q, want trimmed %q", got, "hello")
	}
}

func TestDeriveTitle_WideCharacters(t *testing.T) {
	// Ten CJK characters are 20 cells; the derived title must stay within
	// the 18-cell budget before its ellipsis.
	got := DeriveTitle([]*Message{NewMessage(RoleUser, "数据结构与算法期末复习题", "")})
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected truncation, got %q", got)
	}
	base := strings.TrimSuffix(got, "…")
	if runewidth.StringWidth(base) > TitleWidth {
		t.Errorf("title base width = %d, want <= %d", runewidth.StringWidth(base), TitleWidth)
	}
}

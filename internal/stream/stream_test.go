// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"testing"
	"time"
)

func TestRevealWallClockPacing(t *testing.T) {
	start := time.Now()
	r := NewReveal("abcdefghij", 10, start) // 10 chars/sec

	prefix, done := r.Advance(start.Add(500 * time.Millisecond))
	if prefix != "abcde" {
		t.Fatalf("prefix at 500ms = %q, want %q", prefix, "abcde")
	}
	if done {
		t.Fatal("done too early")
	}

	prefix, done = r.Advance(start.Add(time.Second))
	if prefix != "abcdefghij" || !done {
		t.Fatalf("prefix at 1s = %q done=%v", prefix, done)
	}
}

func TestRevealMinimumProgress(t *testing.T) {
	start := time.Now()
	r := NewReveal("abc", 1000, start)

	// Frozen clock: each call must still move forward one character.
	for i, want := range []string{"a", "ab", "abc"} {
		prefix, done := r.Advance(start)
		if prefix != want {
			t.Fatalf("call %d prefix = %q, want %q", i, prefix, want)
		}
		if done != (want == "abc") {
			t.Fatalf("call %d done = %v", i, done)
		}
	}
}

func TestRevealCatchesUpAfterStall(t *testing.T) {
	start := time.Now()
	r := NewReveal(strings.Repeat("x", 100), 50, start)

	r.Advance(start.Add(20 * time.Millisecond)) // one char in

	// A long gap between ticks jumps straight to the clock target.
	prefix, _ := r.Advance(start.Add(time.Second))
	if len([]rune(prefix)) != 50 {
		t.Fatalf("prefix length after stall = %d, want 50", len([]rune(prefix)))
	}
}

func TestRevealMonotonic(t *testing.T) {
	start := time.Now()
	r := NewReveal("abcdefgh", 10, start)

	prefix, _ := r.Advance(start.Add(500 * time.Millisecond))
	before := len([]rune(prefix))

	// Clock moving backwards never shrinks the prefix.
	prefix, _ = r.Advance(start.Add(100 * time.Millisecond))
	if len([]rune(prefix)) < before {
		t.Fatalf("prefix shrank: %d -> %d", before, len([]rune(prefix)))
	}
}

func TestRevealNeverExceedsText(t *testing.T) {
	start := time.Now()
	r := NewReveal("hi", 1000, start)

	prefix, done := r.Advance(start.Add(time.Hour))
	if prefix != "hi" || !done {
		t.Fatalf("prefix = %q done=%v", prefix, done)
	}

	// Advancing a finished reveal is a stable no-op.
	prefix, done = r.Advance(start.Add(2 * time.Hour))
	if prefix != "hi" || !done {
		t.Fatalf("post-done prefix = %q done=%v", prefix, done)
	}
}

func TestRevealMultibyte(t *testing.T) {
	start := time.Now()
	r := NewReveal("日本語テキスト", 1000, start)

	prefix, _ := r.Advance(start)
	if prefix != "日" {
		t.Fatalf("first rune = %q, want %q", prefix, "日")
	}
}

func TestPlayRunsToCompletion(t *testing.T) {
	var last string
	calls := 0
	revealed, cancelled := Play("hello world", Options{
		CharsPerSecond: 100000,
		Interval:       time.Millisecond,
	}, func(visible string) {
		last = visible
		calls++
	})
	if cancelled {
		t.Fatal("unexpected cancellation")
	}
	if revealed != "hello world" || last != "hello world" {
		t.Fatalf("revealed = %q, last shown = %q", revealed, last)
	}
	if calls == 0 {
		t.Fatal("show never called")
	}
}

func TestPlayCancellationKeepsPrefix(t *testing.T) {
	tok := NewToken()
	full := strings.Repeat("a", 10000)

	var last string
	revealed, cancelled := Play(full, Options{
		CharsPerSecond: 10, // slow enough to guarantee a partial prefix
		Interval:       time.Millisecond,
		Token:          tok,
	}, func(visible string) {
		last = visible
		tok.Cancel()
	})

	if !cancelled {
		t.Fatal("expected cancellation")
	}
	if len(revealed) >= len(full) {
		t.Fatal("expected a partial prefix")
	}
	if !strings.HasPrefix(full, revealed) {
		t.Fatal("revealed text is not a prefix of the full answer")
	}
	if !strings.HasSuffix(last, CancelMarker) {
		t.Fatalf("visible text missing cancel marker: %q", last)
	}
	if !strings.HasPrefix(last, revealed) {
		t.Fatalf("visible text %q does not retain prefix %q", last, revealed)
	}
}

func TestTokenIdempotent(t *testing.T) {
	tok := NewToken()
	if tok.Cancelled() {
		t.Fatal("fresh token already cancelled")
	}
	tok.Cancel()
	tok.Cancel()
	if !tok.Cancelled() {
		t.Fatal("token not cancelled after Cancel")
	}
}

func TestNilTokenNeverCancelled(t *testing.T) {
	var tok *Token
	if tok.Cancelled() {
		t.Fatal("nil token reported cancelled")
	}
	tok.Cancel() // must not panic
}

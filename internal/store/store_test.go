// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return s
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestStore_LoadMissing(t *testing.T) {
	s := newTestStore(t)

	state := s.Load()
	if state.Current != "" {
		t.Errorf("Current = %q, want empty", state.Current)
	}
	if len(state.Sessions) != 0 {
		t.Errorf("Sessions = %d, want 0", len(state.Sessions))
	}
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	state := s.Load()
	if len(state.Sessions) != 0 {
		t.Error("corrupt store must degrade to empty")
	}
}

func TestStore_LoadSchemaInvalid(t *testing.T) {
	s := newTestStore(t)
	// Valid JSON, wrong shape.
	if err := os.WriteFile(s.Path(), []byte(`{"current": 5, "sessions": "nope"}`), 0644); err != nil {
		t.Fatal(err)
	}

	state := s.Load()
	if len(state.Sessions) != 0 {
		t.Error("schema-invalid store must degrade to empty")
	}
}

func TestStore_LoadDanglingCurrent(t *testing.T) {
	s := newTestStore(t)
	state := State{Current: "ghost", Sessions: []Session{{ID: "real"}}}
	if err := s.Save(state); err != nil {
		t.Fatal(err)
	}

	loaded := s.Load()
	if loaded.Current != "" {
		t.Errorf("dangling current pointer must be cleared, got %q", loaded.Current)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	state := State{
		Current: "a",
		Sessions: []Session{{
			ID:        "a",
			Title:     "hello",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
			Messages: []StoredMessage{
				{Role: "user", Content: "hello", Meta: "sent 10:00:00"},
				{Role: "assistant", Content: "hi there", Meta: "latency 120ms"},
			},
		}},
	}
	if err := s.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := s.Load()
	if loaded.Current != "a" {
		t.Errorf("Current = %q", loaded.Current)
	}
	if len(loaded.Sessions) != 1 {
		t.Fatalf("Sessions = %d, want 1", len(loaded.Sessions))
	}
	msgs := loaded.Sessions[0].Messages
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("messages lost order or roles: %+v", msgs)
	}
}

func TestStore_SaveTruncatesToCapacity(t *testing.T) {
	s := newTestStore(t)

	var state State
	for i := 0; i < MaxSessions+1; i++ {
		// Prepend like the manager does: newest first.
		state.Sessions = append([]Session{{ID: fmt.Sprintf("s%d", i)}}, state.Sessions...)
	}
	if err := s.Save(state); err != nil {
		t.Fatal(err)
	}

	loaded := s.Load()
	if len(loaded.Sessions) != MaxSessions {
		t.Fatalf("Sessions = %d, want %d", len(loaded.Sessions), MaxSessions)
	}
	// The oldest (first inserted, list tail) is the one evicted.
	if loaded.Sessions[len(loaded.Sessions)-1].ID != "s1" {
		t.Errorf("tail = %q, want s1 (s0 evicted)", loaded.Sessions[len(loaded.Sessions)-1].ID)
	}
	for _, sess := range loaded.Sessions {
		if sess.ID == "s0" {
			t.Error("s0 should have been evicted")
		}
	}
}

func TestStore_AtomicWritePattern(t *testing.T) {
	s := newTestStore(t)
	if err := s.Save(State{Sessions: []Session{{ID: "x"}}}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only %s, found %d entries", storeFile, len(entries))
	}
}

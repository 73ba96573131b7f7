// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists named conversations for ragdesk.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/ragdesk/internal/util"
)

// MaxSessions caps the stored conversation list. The list is kept
// most-recently-touched first, so the cap drops the oldest-updated entries.
const MaxSessions = 50

// storeFile is the single durable record holding every conversation.
const storeFile = "sessions.json"

// =============================================================================
// PERSISTED TYPES
// =============================================================================

// StoredMessage is one persisted chat turn. Only complete messages are ever
// written, so there is no completeness flag on disk.
type StoredMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Meta    string `json:"meta"`
}

// Session is one persisted, titled conversation.
type Session struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	TitleManual bool            `json:"titleManual"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Messages    []StoredMessage `json:"messages"`
}

// State is the whole persisted record: the current conversation pointer plus
// the session list, most-recently-touched first.
type State struct {
	Current  string    `json:"current"`
	Sessions []Session `json:"sessions"`
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes the session record. Every persist rewrites the whole
// record atomically, so durability is last-writer-wins at store granularity.
type Store struct {
	path        string
	maxSessions int
}

// NewStore creates a store rooted at dir (created if missing).
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{
		path:        filepath.Join(dir, storeFile),
		maxSessions: MaxSessions,
	}, nil
}

// Path returns the store file path (used by the change watcher).
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted state. Missing, corrupt, or schema-invalid data
// degrades to an empty store; corruption is never fatal.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return State{Sessions: []Session{}}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{Sessions: []Session{}}
	}
	if state.Sessions == nil {
		state.Sessions = []Session{}
	}

	// The current pointer must reference a stored session.
	if state.Current != "" && state.find(state.Current) < 0 {
		state.Current = ""
	}
	return state
}

// Save writes the whole record atomically, truncating the session list to
// the capacity first.
func (s *Store) Save(state State) error {
	if len(state.Sessions) > s.maxSessions {
		state.Sessions = state.Sessions[:s.maxSessions]
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0644)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// find returns the index of a session by ID, or -1.
func (st *State) find(id string) int {
	for i := range st.Sessions {
		if st.Sessions[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the session with the given ID, or nil.
func (st *State) Get(id string) *Session {
	if i := st.find(id); i >= 0 {
		return &st.Sessions[i]
	}
	return nil
}

// Upsert replaces the session in place when present, otherwise prepends it.
func (st *State) Upsert(sess Session) {
	if i := st.find(sess.ID); i >= 0 {
		st.Sessions[i] = sess
		return
	}
	st.Sessions = append([]Session{sess}, st.Sessions...)
}

// Remove deletes the session with the given ID, reporting whether it existed.
func (st *State) Remove(id string) bool {
	i := st.find(id)
	if i < 0 {
		return false
	}
	st.Sessions = append(st.Sessions[:i], st.Sessions[i+1:]...)
	return true
}

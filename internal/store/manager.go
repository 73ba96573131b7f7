// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists named conversations for ragdesk.
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/ragdesk/internal/model"
)

// WelcomeText greets a fresh conversation. It is a regular complete
// assistant message, so it persists like any other turn.
const WelcomeText = "Hi! I answer with priority given to the indexed course material.\n" +
	"Check knowledge-base status or tune retrieval parameters in the side panel.\n\n" +
	"When the source documents change, trigger a rebuild to refresh the index."

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the binding between the live transcript and the durable
// store: which conversation is current, when it is persisted, and how
// switching between conversations hands the transcript over.
//
// The store is single-writer: one foreground interaction at a time. Mutual
// exclusion needs no locks because every context switch cancels in-flight
// work and persists the outgoing conversation first.
type Manager struct {
	store      *Store
	transcript *model.Transcript

	currentID    string
	currentTitle string

	// cancelInFlight aborts the active chat request, if any. Registered
	// by the request orchestrator.
	cancelInFlight func()
}

// NewManager creates a manager over a store and the live transcript.
func NewManager(store *Store, transcript *model.Transcript) *Manager {
	return &Manager{store: store, transcript: transcript}
}

// SetCancelFunc registers the hook that aborts an in-flight chat request.
func (m *Manager) SetCancelFunc(fn func()) {
	m.cancelInFlight = fn
}

// CurrentID returns the current conversation ID ("" before Boot).
func (m *Manager) CurrentID() string {
	return m.currentID
}

// CurrentTitle returns the display title of the current conversation.
func (m *Manager) CurrentTitle() string {
	if m.currentTitle == "" {
		return model.DefaultTitle
	}
	return m.currentTitle
}

// Transcript returns the live transcript.
func (m *Manager) Transcript() *model.Transcript {
	return m.transcript
}

// Sessions returns the stored session list, most-recently-touched first.
func (m *Manager) Sessions() []Session {
	return m.store.Load().Sessions
}

// =============================================================================
// BOOT
// =============================================================================

// Boot restores the persisted current conversation, falling back to the most
// recent session, and starts a new conversation when the store is empty.
func (m *Manager) Boot() error {
	state := m.store.Load()

	id := state.Current
	if id == "" && len(state.Sessions) > 0 {
		id = state.Sessions[0].ID
	}
	if id == "" {
		return m.StartNew()
	}

	m.currentID = id
	if sess := state.Get(id); sess != nil {
		m.loadIntoTranscript(sess)
	}
	state.Current = id
	return m.store.Save(state)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// PersistCurrent writes the current conversation into the store. It is a
// no-op unless a current conversation exists and the transcript is dirty, so
// repeated calls without intervening changes cost nothing.
func (m *Manager) PersistCurrent() error {
	if m.currentID == "" || !m.transcript.Dirty() {
		return nil
	}

	messages := snapshotMessages(m.transcript)
	state := m.store.Load()
	now := time.Now()

	autoTitle := model.DeriveTitle(m.transcript.Complete())
	sess := Session{
		ID:        m.currentID,
		Title:     autoTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  messages,
	}

	if existing := state.Get(m.currentID); existing != nil {
		sess.CreatedAt = existing.CreatedAt
		sess.TitleManual = existing.TitleManual
		// A manually-set title is preserved verbatim until renamed.
		if existing.TitleManual && existing.Title != "" {
			sess.Title = existing.Title
		}
	}

	state.Upsert(sess)
	state.Current = m.currentID
	if err := m.store.Save(state); err != nil {
		return err
	}

	m.currentTitle = sess.Title
	m.transcript.ClearDirty()
	return nil
}

// snapshotMessages serializes the complete messages of the transcript.
// Incomplete messages vanish here: an interrupted assistant reply that was
// never finalized does not survive a reload.
func snapshotMessages(t *model.Transcript) []StoredMessage {
	complete := t.Complete()
	out := make([]StoredMessage, 0, len(complete))
	for _, msg := range complete {
		out = append(out, StoredMessage{
			Role:    msg.Role.String(),
			Content: msg.Content,
			Meta:    msg.Meta,
		})
	}
	return out
}

// loadIntoTranscript bulk-loads a stored session into the live transcript
// with dirty-marking suppressed.
func (m *Manager) loadIntoTranscript(sess *Session) {
	m.transcript.Clear()
	m.transcript.WithSuppressedDirty(func() {
		for _, sm := range sess.Messages {
			role := model.RoleAssistant
			if sm.Role == model.RoleUser.String() {
				role = model.RoleUser
			}
			m.transcript.Append(role, sm.Content, sm.Meta)
		}
	})
	m.currentTitle = sess.Title
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// SwitchTo makes another stored conversation current. An in-flight request
// is cancelled first and the outgoing conversation persisted; an unknown ID
// is a no-op.
func (m *Manager) SwitchTo(id string) error {
	if id == m.currentID {
		return nil
	}
	m.abortInFlight()
	if err := m.PersistCurrent(); err != nil {
		return err
	}

	state := m.store.Load()
	target := state.Get(id)
	if target == nil {
		return nil
	}

	m.currentID = id
	m.loadIntoTranscript(target)
	state.Current = id
	return m.store.Save(state)
}

// StartNew creates a fresh conversation and makes it current. The immediate
// persist makes the new (welcome-only) conversation visible in the session
// list right away.
func (m *Manager) StartNew() error {
	m.abortInFlight()
	if err := m.PersistCurrent(); err != nil {
		return err
	}

	m.currentID = uuid.NewString()
	m.currentTitle = ""
	m.transcript.Clear()
	m.transcript.WithSuppressedDirty(func() {
		m.transcript.Append(model.RoleAssistant, WelcomeText, "boot · "+time.Now().Format("15:04:05"))
	})
	m.transcript.MarkDirty()
	return m.PersistCurrent()
}

// Delete removes a stored conversation. Confirmation is the caller's duty;
// the operation is irreversible. Deleting the current conversation selects
// the next available one, or starts fresh when the store is emptied.
func (m *Manager) Delete(id string) error {
	state := m.store.Load()
	if !state.Remove(id) {
		return nil
	}

	if id != m.currentID {
		return m.store.Save(state)
	}

	if len(state.Sessions) == 0 {
		state.Current = ""
		if err := m.store.Save(state); err != nil {
			return err
		}
		m.currentID = ""
		return m.StartNew()
	}

	next := state.Sessions[0]
	state.Current = next.ID
	if err := m.store.Save(state); err != nil {
		return err
	}
	m.currentID = next.ID
	m.loadIntoTranscript(&next)
	return nil
}

// Rename sets a manual title on a stored conversation. Manual titles are
// never overwritten by auto-derivation again. Blank titles are rejected by
// doing nothing.
func (m *Manager) Rename(id, newTitle string) error {
	title := strings.TrimSpace(newTitle)
	if title == "" {
		return nil
	}

	state := m.store.Load()
	sess := state.Get(id)
	if sess == nil {
		return nil
	}

	sess.Title = title
	sess.TitleManual = true
	sess.UpdatedAt = time.Now()
	if err := m.store.Save(state); err != nil {
		return err
	}

	if id == m.currentID {
		m.currentTitle = title
	}
	return nil
}

// abortInFlight runs the registered cancellation hook, if any.
func (m *Manager) abortInFlight() {
	if m.cancelInFlight != nil {
		m.cancelInFlight()
	}
}

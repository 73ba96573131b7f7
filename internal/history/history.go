// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a local full-text index over stored
// conversations, so old answers can be found without scrolling.
//
// The index is derived data: it is rebuilt from the session store on
// demand and can be deleted at any time without losing conversations.
package history

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/ragdesk/internal/store"
)

// =============================================================================
// INDEX
// =============================================================================

// Index is the SQLite-backed message search index.
type Index struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the index database at path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	// Single writer; the sqlite driver serializes anyway but a bounded
	// pool keeps file handles predictable.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the database.
func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) migrate() error {
	var version string
	err := i.db.QueryRow(`SELECT value FROM metadata WHERE key = 'schema_version'`).Scan(&version)
	if err == nil && version != schemaVersion {
		// Derived data: drop and start over rather than migrating.
		drops := []string{
			"DROP TRIGGER IF EXISTS messages_ai",
			"DROP TRIGGER IF EXISTS messages_ad",
			"DROP TABLE IF EXISTS messages_fts",
			"DROP TABLE IF EXISTS messages",
			"DROP TABLE IF EXISTS metadata",
		}
		for _, d := range drops {
			if _, err := i.db.Exec(d); err != nil {
				return fmt.Errorf("failed to reset history schema: %w", err)
			}
		}
	}

	if _, err := i.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create history schema: %w", err)
	}
	_, err = i.db.Exec(
		`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`,
		schemaVersion,
	)
	return err
}

// =============================================================================
// INDEXING
// =============================================================================

// IndexSession replaces the indexed messages of one session with the given
// stored state. Called after every persist; idempotent.
func (i *Index) IndexSession(sess *store.Session) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	tx, err := i.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE session_id = ?`, sess.ID); err != nil {
		return fmt.Errorf("failed to clear session from index: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (session_id, session_title, position, role, content, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for pos, msg := range sess.Messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if _, err := stmt.Exec(sess.ID, sess.Title, pos, msg.Role, msg.Content, now); err != nil {
			return fmt.Errorf("failed to index message: %w", err)
		}
	}

	return tx.Commit()
}

// RemoveSession drops a deleted session from the index.
func (i *Index) RemoveSession(sessionID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, err := i.db.Exec(`DELETE FROM messages WHERE session_id = ?`, sessionID)
	return err
}

// Rebuild reindexes every session in the store state.
func (i *Index) Rebuild(state store.State) error {
	for idx := range state.Sessions {
		if err := i.IndexSession(&state.Sessions[idx]); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Result is one search hit.
type Result struct {
	SessionID    string
	SessionTitle string
	Position     int
	Role         string
	Snippet      string
}

// MaxResults caps a single search.
const MaxResults = 50

// Search runs a full-text query and returns hits ranked by relevance. The
// query is treated as plain words; FTS operators from user input are
// neutralized.
func (i *Index) Search(query string) ([]Result, error) {
	terms := sanitizeQuery(query)
	if terms == "" {
		return nil, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	rows, err := i.db.Query(`
		SELECT m.session_id, m.session_title, m.position, m.role,
		       snippet(messages_fts, 0, '[', ']', '…', 12)
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, terms, MaxResults)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.SessionID, &r.SessionTitle, &r.Position, &r.Role, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of indexed messages.
func (i *Index) Count() (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	var n int
	err := i.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// sanitizeQuery strips FTS5 syntax and quotes each term, so "foo OR bar*"
// searches for the literal words.
func sanitizeQuery(q string) string {
	fields := strings.Fields(q)
	quoted := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		quoted = append(quoted, `"`+f+`"`)
	}
	return strings.Join(quoted, " ")
}

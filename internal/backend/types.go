// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the JSON client for the retrieval-augmented
// chat backend.
package backend

import (
	"encoding/json"
	"strconv"
	"strings"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatMessage is one turn of conversation history as the backend expects it.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload for the chat-completion endpoint.
type ChatRequest struct {
	Message        string        `json:"message"`
	History        []ChatMessage `json:"history"`
	TopK           int           `json:"top_k"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	IncludeContext bool          `json:"include_context"`
}

// Source is a retrieval citation attached to an answer.
type Source struct {
	Filename   string     `json:"filename"`
	PageNumber PageNumber `json:"page_number"`
	Snippet    string     `json:"snippet"`
}

// PageNumber tolerates the backend sending either an integer or the literal
// string "N/A" for sources without pagination.
type PageNumber string

// UnmarshalJSON accepts both numeric and string encodings.
func (p *PageNumber) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*p = PageNumber(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = PageNumber(n.String())
	return nil
}

// MarshalJSON re-emits the stored representation.
func (p PageNumber) MarshalJSON() ([]byte, error) {
	if p.IsKnown() {
		return []byte(string(p)), nil
	}
	return json.Marshal(string(p))
}

// IsKnown returns true when the page number is a real positive integer.
func (p PageNumber) IsKnown() bool {
	n, err := strconv.Atoi(string(p))
	return err == nil && n > 0
}

// Display returns a short human form: "p.3" for known pages, "—" otherwise.
func (p PageNumber) Display() string {
	if p.IsKnown() {
		return "p." + string(p)
	}
	return "—"
}

// ChatResponse is the chat-completion reply.
type ChatResponse struct {
	Answer    string   `json:"answer"`
	LatencyMS int64    `json:"latency_ms"`
	Sources   []Source `json:"sources"`
	Context   string   `json:"context,omitempty"`
}

// =============================================================================
// STATUS TYPES
// =============================================================================

// Defaults carries backend-suggested generation parameters.
type Defaults struct {
	TopK int `json:"top_k"`
}

// Status is the backend status snapshot.
type Status struct {
	Model                string   `json:"model"`
	APIBase              string   `json:"api_base"`
	EmbeddingModel       string   `json:"embedding_model"`
	DataDirExists        bool     `json:"data_dir_exists"`
	VectorDBExists       bool     `json:"vector_db_exists"`
	CollectionCount      int      `json:"collection_count"`
	CollectionCountError string   `json:"collection_count_error"`
	Defaults             Defaults `json:"defaults"`
}

// =============================================================================
// REBUILD TYPES
// =============================================================================

// RebuildAck is the reply to a rebuild trigger.
type RebuildAck struct {
	Message string `json:"message"`
}

// RebuildJob is the progress snapshot of the asynchronous rebuild job. It is
// owned entirely by the backend; the client only holds the last polled copy.
type RebuildJob struct {
	Running   bool     `json:"running"`
	Stage     string   `json:"stage"`
	Current   int      `json:"current"`
	Total     int      `json:"total"`
	Percent   int      `json:"percent"`
	LastError string   `json:"last_error"`
	LogsTail  []string `json:"logs_tail"`
}

// Succeeded reports whether a finished job completed without error.
func (j *RebuildJob) Succeeded() bool {
	return !j.Running && j.LastError == ""
}

// LastLog returns the newest log line of the tail, or "" when there is
// none. Safe on a nil job.
func (j *RebuildJob) LastLog() string {
	if j == nil || len(j.LogsTail) == 0 {
		return ""
	}
	return strings.TrimSpace(j.LogsTail[len(j.LogsTail)-1])
}

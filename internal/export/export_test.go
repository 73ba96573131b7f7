// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/ragdesk/internal/store"
)

func sampleSession() *store.Session {
	return &store.Session{
		ID:        "sess-1",
		Title:     "pytorch basics",
		CreatedAt: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 3, 10, 9, 45, 0, 0, time.UTC),
		Messages: []store.StoredMessage{
			{Role: "user", Content: "what is a tensor?"},
			{Role: "assistant", Content: "A **tensor** is an n-dimensional array.", Meta: "84 ms · 2 sources"},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	data, err := NewMarkdownExporter(nil).Export(sampleSession())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(data)

	for _, want := range []string{
		"title: pytorch basics",
		"# pytorch basics",
		"### You",
		"### Assistant",
		"what is a tensor?",
		"84 ms · 2 sources",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownRejectsEmpty(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(&store.Session{ID: "x", Title: "t"}); err == nil {
		t.Fatal("expected error for empty conversation")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Fatal("expected error for nil conversation")
	}
}

func TestHTMLExportEscapesAndRenders(t *testing.T) {
	sess := sampleSession()
	sess.Title = `<script>alert("x")</script>`
	sess.Messages[0].Content = "raw <b>html</b> & stuff"

	data, err := NewHTMLExporter(nil).Export(sess)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(data)

	if strings.Contains(out, `<script>alert`) {
		t.Error("title not escaped")
	}
	if !strings.Contains(out, "&lt;b&gt;html&lt;/b&gt;") {
		t.Error("message body not escaped")
	}
	// Markdown in the assistant message renders to markup.
	if !strings.Contains(out, "<strong>tensor</strong>") {
		t.Error("markdown not rendered in body")
	}
	if !strings.Contains(out, "dark-theme") {
		t.Error("theme class missing")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	data, err := NewJSONExporter().Export(sampleSession())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded store.Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("exported JSON invalid: %v", err)
	}
	if decoded.ID != "sess-1" || len(decoded.Messages) != 2 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportMarkdown(sampleSession(), opts)
	if err != nil {
		t.Fatalf("ExportMarkdown: %v", err)
	}
	if !strings.HasPrefix(path, dir) || !strings.HasSuffix(path, ".md") {
		t.Fatalf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"simple":           "simple",
		"with spaces here": "with_spaces_here",
		`a/b\c:d*e?f`:      "a-b-c-d-e-f",
		"":                 "conversation",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"
	"testing"
)

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestRender_Empty(t *testing.T) {
	if got := Render(""); got != "" {
		t.Errorf("Render(\"\") = %q, want empty", got)
	}
}

func TestRender_RawHTMLIsNeverLive(t *testing.T) {
	got := Render(`<script>alert(1)</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML leaked into output: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag, got %q", got)
	}
}

func TestRender_InlineCode(t *testing.T) {
	got := Render("use `code` here")
	if !strings.Contains(got, "<code>code</code>") {
		t.Errorf("inline code not rendered: %q", got)
	}
}

func TestRender_BoldAndItalic(t *testing.T) {
	got := Render("**bold** and *italic*")
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("bold missing: %q", got)
	}
	if !strings.Contains(got, "<em>italic</em>") {
		t.Errorf("italic missing: %q", got)
	}
}

func TestRender_LinkAttributes(t *testing.T) {
	got := Render("[docs](https://example.com/a)")
	for _, want := range []string{
		`href="https://example.com/a"`,
		`target="_blank"`,
		`rel="noreferrer noopener"`,
		`>docs</a>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("link output missing %q: %q", want, got)
		}
	}
}

func TestRender_JavascriptLinkNeutralized(t *testing.T) {
	got := Render("[x](javascript:alert(1))")
	if strings.Contains(strings.ToLower(got), "javascript:") {
		t.Fatalf("javascript: scheme survived: %q", got)
	}
	if !strings.Contains(got, `href="#"`) {
		t.Errorf("expected neutral placeholder target: %q", got)
	}
}

func TestRender_DataLinkNeutralized(t *testing.T) {
	got := Render("[x](DATA:text/html;base64,xxxx)")
	if !strings.Contains(got, `href="#"`) {
		t.Errorf("data: scheme not neutralized (case-insensitive): %q", got)
	}
}

func TestRender_FencedCodeBlock(t *testing.T) {
	got := Render("before\n```\na < b && c > d\n```\nafter")
	if !strings.Contains(got, "<pre><code>a &lt; b &amp;&amp; c &gt; d\n</code></pre>") {
		t.Errorf("code block not escaped/preformatted: %q", got)
	}
}

func TestRender_CodeBlockContentsNotInlineTransformed(t *testing.T) {
	got := Render("```\n**not bold** `not code` [not](a-link)\n```")
	if strings.Contains(got, "<strong>") || strings.Contains(got, "<a ") {
		t.Errorf("inline transforms ran inside a fence: %q", got)
	}
}

func TestRender_HighlightedCodeBlock(t *testing.T) {
	got := Render("```go\npackage main\n```")
	// chroma emits span-styled markup; the exact markup is chroma's
	// business, but the keyword must be present and not double-escaped.
	if !strings.Contains(got, "package") {
		t.Errorf("highlighted block lost contents: %q", got)
	}
}

func TestRender_UnterminatedFenceStaysPlain(t *testing.T) {
	got := Render("```go\nunclosed fence")
	if strings.Contains(got, "<pre>") {
		t.Errorf("unterminated fence must not open a code block: %q", got)
	}
	if !strings.Contains(got, "unclosed fence") {
		t.Errorf("fence text lost: %q", got)
	}
}

func TestRender_Headings(t *testing.T) {
	got := Render("# one\n## two\n### three\n#### four")
	for _, want := range []string{"<h1>one</h1>", "<h2>two</h2>", "<h3>three</h3>"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
	if strings.Contains(got, "<h4>") {
		t.Errorf("level 4 headings are not a construct: %q", got)
	}
}

func TestRender_UnorderedList(t *testing.T) {
	got := Render("- a\n- b")
	if !strings.Contains(got, "<ul><li>a</li><li>b</li></ul>") {
		t.Errorf("ul rendering wrong: %q", got)
	}
}

func TestRender_OrderedList(t *testing.T) {
	got := Render("1. a\n2. b")
	if !strings.Contains(got, "<ol><li>a</li><li>b</li></ol>") {
		t.Errorf("ol rendering wrong: %q", got)
	}
}

func TestRender_ListTypeSwitchClosesPrior(t *testing.T) {
	got := Render("- a\n1. b")
	if !strings.Contains(got, "</ul><ol>") {
		t.Errorf("switching marker type must close the prior list: %q", got)
	}
}

func TestRender_BlankLineClosesList(t *testing.T) {
	got := Render("- a\n\ntext")
	if !strings.Contains(got, "</ul>") {
		t.Errorf("blank line must close list: %q", got)
	}
	if !strings.Contains(got, "<p>text</p>") {
		t.Errorf("paragraph missing: %q", got)
	}
}

func TestRender_ParagraphMerging(t *testing.T) {
	got := Render("line one\nline two\n\nline three")
	if !strings.Contains(got, "<p>line one<br>line two</p>") {
		t.Errorf("consecutive lines not merged: %q", got)
	}
	if !strings.Contains(got, "<p>line three</p>") {
		t.Errorf("second paragraph missing: %q", got)
	}
}

func TestRender_PlaceholderForgeryIsInert(t *testing.T) {
	// The nonce is random per render; a forged placeholder never resolves
	// to a block and renders as plain text.
	got := Render("@@cb-0000000000000000-0@@")
	if strings.Contains(got, "<pre>") {
		t.Errorf("forged placeholder resolved: %q", got)
	}
}

// =============================================================================
// SANITIZER TESTS
// =============================================================================

func TestSanitizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com"},
		{"  http://x  ", "http://x"},
		{"", "#"},
		{"javascript:alert(1)", "#"},
		{"JaVaScRiPt:alert(1)", "#"},
		{"data:text/html,x", "#"},
		{"/relative/path", "/relative/path"},
	}
	for _, tt := range tests {
		if got := SanitizeURL(tt.in); got != tt.want {
			t.Errorf("SanitizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

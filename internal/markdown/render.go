// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders untrusted markdown-ish text to safe HTML.
package markdown

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
)

// The renderer is safe by default: raw structural markup in the input is
// never interpreted, only the documented constructs below are. Pipeline
// order matters and is fixed:
//
//  1. normalize line endings
//  2. extract fenced code blocks behind unguessable placeholders
//  3. escape &, <, > in everything that remains
//  4. inline transforms: code spans, bold, italic, links
//  5. line-oriented block pass: headings, lists, paragraphs, and
//     placeholder restoration
//
// Extracting fences before any escaping keeps code contents out of reach of
// the inline transforms; escaping before the inline pass means no transform
// can ever introduce structural markup from user text.

var (
	fencedRe     = regexp.MustCompile("(?s)```([a-zA-Z0-9_-]+)?\n(.*?)```")
	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*\n]+)\*`)
	linkRe       = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\s]+)\)`)

	headingRe = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	ulItemRe  = regexp.MustCompile(`^\s*[-*]\s+(.*)$`)
	olItemRe  = regexp.MustCompile(`^\s*\d+\.\s+(.*)$`)
)

// Render converts text to safe HTML. Empty input yields empty output.
func Render(text string) string {
	if text == "" {
		return ""
	}

	raw := strings.ReplaceAll(text, "\r\n", "\n")

	// Placeholder tokens carry a per-render random nonce so input text can
	// never collide with (or forge) one.
	nonce := newNonce()
	var blocks []string

	withPlaceholders := replaceFences(raw, func(lang, code string) string {
		idx := len(blocks)
		blocks = append(blocks, renderCodeBlock(lang, code))
		return placeholder(nonce, idx)
	})

	escaped := EscapeHTML(withPlaceholders)
	inlined := applyInline(escaped)

	return renderBlocks(inlined, nonce, blocks)
}

// =============================================================================
// ESCAPING AND SANITIZING
// =============================================================================

// EscapeHTML escapes the three HTML-significant characters. Everything else
// passes through untouched.
func EscapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// SanitizeURL rejects javascript: and data: schemes (case-insensitive),
// substituting the neutral "#" target.
func SanitizeURL(url string) string {
	u := strings.TrimSpace(url)
	if u == "" {
		return "#"
	}
	low := strings.ToLower(u)
	if strings.HasPrefix(low, "javascript:") || strings.HasPrefix(low, "data:") {
		return "#"
	}
	return u
}

// =============================================================================
// FENCE EXTRACTION
// =============================================================================

// replaceFences substitutes every terminated fence via fn. An unterminated
// fence at end of input does not match and therefore stays literal text.
func replaceFences(s string, fn func(lang, code string) string) string {
	var sb strings.Builder
	last := 0
	for _, m := range fencedRe.FindAllStringSubmatchIndex(s, -1) {
		sb.WriteString(s[last:m[0]])
		lang := ""
		if m[2] >= 0 {
			lang = s[m[2]:m[3]]
		}
		sb.WriteString(fn(lang, s[m[4]:m[5]]))
		last = m[1]
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func placeholder(nonce string, idx int) string {
	return "@@cb-" + nonce + "-" + strconv.Itoa(idx) + "@@"
}

func newNonce() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// =============================================================================
// INLINE TRANSFORMS
// =============================================================================

// applyInline runs the inline transforms in fixed order over already-escaped
// text: code spans first so their contents win over emphasis, then bold
// before italic so ** is not eaten as two *.
func applyInline(text string) string {
	text = inlineCodeRe.ReplaceAllString(text, "<code>$1</code>")
	text = boldRe.ReplaceAllString(text, "<strong>$1</strong>")
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")
	text = linkRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		href := EscapeHTML(SanitizeURL(sub[2]))
		// New tab with no referrer and no opener: link targets are
		// untrusted no matter where the message came from.
		return `<a href="` + href + `" target="_blank" rel="noreferrer noopener">` + sub[1] + `</a>`
	})
	return text
}

// =============================================================================
// BLOCK PASS
// =============================================================================

// renderBlocks is the line-oriented block state machine: headings, the two
// list kinds, paragraphs, and restoration of fenced-block placeholders.
func renderBlocks(text, nonce string, blocks []string) string {
	phLineRe := regexp.MustCompile(`^@@cb-` + nonce + `-(\d+)@@$`)
	phAnyRe := regexp.MustCompile(`@@cb-` + nonce + `-(\d+)@@`)

	lines := strings.Split(text, "\n")
	var out strings.Builder
	inUL := false
	inOL := false

	closeLists := func() {
		if inUL {
			out.WriteString("</ul>")
			inUL = false
		}
		if inOL {
			out.WriteString("</ol>")
			inOL = false
		}
	}

	isBlockStart := func(line string) bool {
		return phLineRe.MatchString(line) ||
			headingRe.MatchString(line) ||
			ulItemRe.MatchString(line) ||
			olItemRe.MatchString(line)
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := phLineRe.FindStringSubmatch(line); m != nil {
			closeLists()
			out.WriteString(blockAt(blocks, m[1]))
			continue
		}

		if strings.TrimSpace(line) == "" {
			closeLists()
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			closeLists()
			tag := "h" + strconv.Itoa(len(m[1]))
			out.WriteString("<" + tag + ">" + m[2] + "</" + tag + ">")
			continue
		}

		if m := ulItemRe.FindStringSubmatch(line); m != nil {
			// A differently-typed list auto-closes the prior one.
			if inOL {
				out.WriteString("</ol>")
				inOL = false
			}
			if !inUL {
				out.WriteString("<ul>")
				inUL = true
			}
			out.WriteString("<li>" + m[1] + "</li>")
			continue
		}

		if m := olItemRe.FindStringSubmatch(line); m != nil {
			if inUL {
				out.WriteString("</ul>")
				inUL = false
			}
			if !inOL {
				out.WriteString("<ol>")
				inOL = true
			}
			out.WriteString("<li>" + m[1] + "</li>")
			continue
		}

		closeLists()

		// Merge consecutive plain lines into one paragraph joined by <br>.
		para := line
		for i+1 < len(lines) {
			next := lines[i+1]
			if strings.TrimSpace(next) == "" || isBlockStart(next) {
				break
			}
			i++
			para += "<br>" + next
		}
		out.WriteString("<p>" + para + "</p>")
	}
	closeLists()

	// Placeholders embedded mid-line (rare) are restored last.
	return phAnyRe.ReplaceAllStringFunc(out.String(), func(m string) string {
		sub := phAnyRe.FindStringSubmatch(m)
		return blockAt(blocks, sub[1])
	})
}

func blockAt(blocks []string, idx string) string {
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 || n >= len(blocks) {
		return ""
	}
	return blocks[n]
}

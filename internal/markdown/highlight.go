// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markdown

import (
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
)

// highlightStyle is the chroma style used for exported HTML.
const highlightStyle = "github"

// renderCodeBlock renders one fenced block as preformatted HTML. When the
// fence names a language chroma knows, the code is syntax highlighted with
// inline styles; otherwise (or if highlighting fails) the contents are
// escaped verbatim. Either way the output contains no live markup derived
// from the input.
func renderCodeBlock(lang, code string) string {
	if lang != "" {
		if highlighted, ok := highlightCode(lang, code); ok {
			return highlighted
		}
	}
	return "<pre><code>" + EscapeHTML(code) + "</code></pre>"
}

// highlightCode runs chroma over the code, returning ok=false on any
// failure so the caller can fall back to plain escaping.
func highlightCode(lang, code string) (string, bool) {
	lexer := lexers.Get(lang)
	if lexer == nil {
		return "", false
	}

	style := chromastyles.Get(highlightStyle)
	if style == nil {
		style = chromastyles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	formatter := chromahtml.New(
		chromahtml.WithClasses(false),
		chromahtml.PreventSurroundingPre(false),
	)

	var sb strings.Builder
	if err := formatter.Format(&sb, style, iterator); err != nil {
		return "", false
	}
	return sb.String(), true
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markdown renders untrusted markdown-ish text to safe HTML.
//
// Render is a pure function used by the transcript HTML exporter and for
// finalized assistant messages. It supports fenced code blocks (with chroma
// syntax highlighting for known languages), inline code, bold, italic,
// links, level 1-3 headings, and ordered/unordered lists. Everything else
// in the input is treated as plain text, which makes the output injection
// free regardless of where the input came from.
package markdown

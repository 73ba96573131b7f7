// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jeranaias/ragdesk/internal/markdown"
	"github.com/jeranaias/ragdesk/internal/store"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML file with
// embedded CSS. Message bodies go through the same markdown renderer the
// client uses, so exported pages look like the live transcript.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(sess *store.Session) ([]byte, error) {
	if sess == nil {
		return nil, fmt.Errorf("conversation is nil")
	}
	if len(sess.Messages) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(sess.Title)))
	sb.WriteString("    <meta name=\"generator\" content=\"ragdesk\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", sess.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString("        <header class=\"header\">\n")
		sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(sess.Title)))
		sb.WriteString("            <div class=\"metadata\">\n")
		sb.WriteString(fmt.Sprintf("                <span><strong>Created:</strong> %s</span>\n", formatTimestamp(sess.CreatedAt)))
		sb.WriteString(fmt.Sprintf("                <span><strong>Messages:</strong> %d</span>\n", len(sess.Messages)))
		sb.WriteString("            </div>\n")
		sb.WriteString("        </header>\n")
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for i := range sess.Messages {
		sb.WriteString(e.renderMessage(&sess.Messages[i]))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>ragdesk</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING
// =============================================================================

func (e *HTMLExporter) renderMessage(msg *store.StoredMessage) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", html.EscapeString(msg.Role)))
	sb.WriteString(fmt.Sprintf("                <div class=\"role\">%s</div>\n", roleLabel(msg.Role)))
	sb.WriteString("                <div class=\"content\">")
	sb.WriteString(markdown.Render(msg.Content))
	sb.WriteString("</div>\n")
	if msg.Meta != "" {
		sb.WriteString(fmt.Sprintf("                <div class=\"meta\">%s</div>\n", html.EscapeString(msg.Meta)))
	}
	sb.WriteString("            </div>\n")

	return sb.String()
}

func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root { --bg: #ffffff; --fg: #1a1a1a; --bubble-user: #e3f2fd; --bubble-assistant: #f5f5f5; --meta: #757575; --border: #e0e0e0; }
        .dark-theme { --bg: #121212; --fg: #e0e0e0; --bubble-user: #1a3a5c; --bubble-assistant: #1e1e1e; --meta: #9e9e9e; --border: #333; }
        body { margin: 0; background: var(--bg); color: var(--fg); font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.55; }
        .container { max-width: 820px; margin: 0 auto; padding: 24px 16px; }
        .header h1 { margin: 0 0 8px; font-size: 1.5rem; }
        .metadata { display: flex; gap: 16px; font-size: 0.85rem; color: var(--meta); margin-bottom: 24px; }
        .message { border-radius: 10px; padding: 12px 16px; margin-bottom: 16px; }
        .message.user { background: var(--bubble-user); }
        .message.assistant { background: var(--bubble-assistant); }
        .role { font-weight: 600; font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.04em; margin-bottom: 6px; }
        .meta { font-size: 0.75rem; color: var(--meta); margin-top: 8px; }
        .content pre { overflow-x: auto; border: 1px solid var(--border); border-radius: 6px; padding: 10px; }
        .content code { font-family: "SF Mono", Consolas, monospace; font-size: 0.9em; }
        .footer { text-align: center; font-size: 0.8rem; color: var(--meta); margin-top: 32px; }
    </style>
`
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/export"
	"github.com/jeranaias/ragdesk/internal/poller"
	"github.com/jeranaias/ragdesk/internal/store"
)

// =============================================================================
// COMMAND PARSING
// =============================================================================

// parseCommand splits "/switch 3" into ("switch", "3"). The leading slash
// is required; name comparison is case-insensitive.
func parseCommand(input string) (name, arg string) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", input
	}
	rest := input[1:]
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		return strings.ToLower(rest[:i]), strings.TrimSpace(rest[i+1:])
	}
	return strings.ToLower(rest), ""
}

// dispatch runs a slash command and reports whether the REPL should exit.
func (r *REPL) dispatch(ctx context.Context, input string) bool {
	name, arg := parseCommand(input)
	switch name {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		r.cmdHelp()
	case "new":
		r.cmdNew()
	case "sessions", "ls":
		r.cmdSessions()
	case "switch":
		r.cmdSwitch(arg)
	case "delete", "rm":
		r.cmdDelete(arg)
	case "rename":
		r.cmdRename(arg)
	case "status":
		r.cmdStatus(ctx)
	case "rebuild":
		r.cmdRebuild(ctx)
	case "search":
		r.cmdSearch(arg)
	case "export":
		r.cmdExport(arg)
	default:
		fmt.Println(errorStyle.Render("unknown command: /" + name + " (try /help)"))
	}
	return false
}

// =============================================================================
// COMMANDS
// =============================================================================

func (r *REPL) cmdHelp() {
	fmt.Println(infoStyle.Render(strings.TrimLeft(`
/new              start a new conversation
/sessions         list saved conversations
/switch N         switch to conversation N
/delete N         delete conversation N
/rename TITLE     rename the current conversation
/status           show backend status
/rebuild          rebuild the backend index and follow progress
/search WORDS     full-text search across conversations
/export [FORMAT]  export the current conversation (md, html, json)
/quit             save and exit
`, "\n")))
}

func (r *REPL) cmdNew() {
	if err := r.manager.StartNew(); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("started a new conversation"))
}

func (r *REPL) cmdSessions() {
	sessions := r.manager.Sessions()
	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("no saved conversations"))
		return
	}
	current := r.manager.CurrentID()
	for i, s := range sessions {
		marker := "  "
		if s.ID == current {
			marker = "* "
		}
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Printf("%s%2d  %s  %s(%d messages, %s)%s\n",
			marker, i+1, title,
			metaStyle.Render(""), len(s.Messages),
			s.UpdatedAt.Format("Jan 2 15:04"), "")
	}
}

// pickSession resolves a 1-based list index from /sessions.
func (r *REPL) pickSession(arg string) (*store.Session, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	sessions := r.manager.Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		fmt.Println(errorStyle.Render("expected a conversation number from /sessions"))
		return nil, false
	}
	return &sessions[n-1], true
}

func (r *REPL) cmdSwitch(arg string) {
	sess, ok := r.pickSession(arg)
	if !ok {
		return
	}
	if err := r.manager.SwitchTo(sess.ID); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("switched to: " + r.manager.CurrentTitle()))
}

// confirmsDelete interprets a y/N answer; anything but an explicit yes
// declines.
func confirmsDelete(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func (r *REPL) cmdDelete(arg string) {
	sess, ok := r.pickSession(arg)
	if !ok {
		return
	}
	title := sess.Title
	if title == "" {
		title = "Untitled"
	}
	answer, err := r.line.Prompt(warnStyle.Render(fmt.Sprintf("delete %q? [y/N] ", title)))
	if err != nil || !confirmsDelete(answer) {
		fmt.Println(infoStyle.Render("kept"))
		return
	}
	if err := r.manager.Delete(sess.ID); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	if r.index != nil {
		_ = r.index.RemoveSession(sess.ID)
	}
	fmt.Println(infoStyle.Render("deleted"))
}

func (r *REPL) cmdRename(arg string) {
	if arg == "" {
		fmt.Println(errorStyle.Render("usage: /rename NEW TITLE"))
		return
	}
	if err := r.manager.Rename(r.manager.CurrentID(), arg); err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("renamed to: " + r.manager.CurrentTitle()))
}

func (r *REPL) cmdStatus(ctx context.Context) {
	st, err := r.client.Status(ctx)
	if err != nil {
		fmt.Println(errorStyle.Render("backend unreachable: " + err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("model:       ") + st.Model)
	fmt.Println(infoStyle.Render("embeddings:  ") + st.EmbeddingModel)
	if st.CollectionCountError != "" {
		fmt.Println(infoStyle.Render("collection:  ") + errorStyle.Render(st.CollectionCountError))
	} else {
		fmt.Printf("%s%d chunks\n", infoStyle.Render("collection:  "), st.CollectionCount)
	}
}

func (r *REPL) cmdRebuild(ctx context.Context) {
	ack, err := r.client.Rebuild(ctx, nil)
	if err != nil {
		fmt.Println(errorStyle.Render("rebuild failed to start: " + err.Error()))
		return
	}
	fmt.Println(infoStyle.Render(ack.Message))

	updates := make(chan poller.Update, 8)
	go poller.Run(ctx, r.client, updates)

	for up := range updates {
		switch up.Event {
		case poller.EventProgress:
			fmt.Printf("\r%-78s", rebuildProgressLine(up.Job))
		case poller.EventRetry:
			fmt.Println()
			fmt.Println(warnStyle.Render("  poll failed: " + up.Err.Error() + ", retrying"))
		case poller.EventDone:
			fmt.Println()
			if up.Job.Succeeded() {
				fmt.Println(infoStyle.Render("rebuild complete"))
				if up.Status != nil {
					fmt.Printf("%s%d chunks\n", infoStyle.Render("collection:  "), up.Status.CollectionCount)
				}
			} else {
				fmt.Println(errorStyle.Render("rebuild failed: " + up.Job.LastError))
			}
		case poller.EventAbandoned:
			fmt.Println()
			fmt.Println(errorStyle.Render("lost contact with the backend during rebuild"))
		}
	}
}

// rebuildProgressLine is one carriage-return frame of the rebuild watch,
// ending with the newest backend log line.
func rebuildProgressLine(job *backend.RebuildJob) string {
	line := fmt.Sprintf("  %s %d/%d (%d%%)", job.Stage, job.Current, job.Total, job.Percent)
	if tail := job.LastLog(); tail != "" {
		line += "  " + tail
	}
	return line
}

func (r *REPL) cmdSearch(arg string) {
	if r.index == nil {
		fmt.Println(errorStyle.Render("history search is disabled in the config"))
		return
	}
	if arg == "" {
		fmt.Println(errorStyle.Render("usage: /search WORDS"))
		return
	}
	results, err := r.index.Search(arg)
	if err != nil {
		fmt.Println(errorStyle.Render("search failed: " + err.Error()))
		return
	}
	if len(results) == 0 {
		fmt.Println(infoStyle.Render("no matches"))
		return
	}
	for _, res := range results {
		title := res.SessionTitle
		if title == "" {
			title = "Untitled"
		}
		fmt.Printf("%s  %s\n", infoStyle.Render(title), res.Snippet)
	}
}

func (r *REPL) cmdExport(arg string) {
	sessions := r.manager.Sessions()
	currentID := r.manager.CurrentID()
	var sess *store.Session
	for i := range sessions {
		if sessions[i].ID == currentID {
			sess = &sessions[i]
			break
		}
	}
	if sess == nil || len(sess.Messages) == 0 {
		fmt.Println(errorStyle.Render("nothing to export yet"))
		return
	}

	opts := export.DefaultOptions()
	opts.Theme = r.cfg.UI.Theme

	var path string
	var err error
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "", "md", "markdown":
		path, err = export.ExportMarkdown(sess, opts)
	case "html":
		path, err = export.ExportHTML(sess, opts)
	case "json":
		path, err = export.ExportJSON(sess, opts)
	default:
		fmt.Println(errorStyle.Render("unknown format (md, html, json)"))
		return
	}
	if err != nil {
		fmt.Println(errorStyle.Render("export failed: " + err.Error()))
		return
	}
	fmt.Println(infoStyle.Render("exported to " + path))
}

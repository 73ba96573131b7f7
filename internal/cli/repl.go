// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-oriented fallback client for terminals
// where the full-screen TUI is unwanted (pipes, dumb terminals, --plain).
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/orchestrator"
	"github.com/jeranaias/ragdesk/internal/store"
	"github.com/jeranaias/ragdesk/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Blue).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	metaStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the interactive line-mode client.
type REPL struct {
	cfg     *config.Config
	manager *store.Manager
	orch    *orchestrator.Orchestrator
	client  *backend.Client

	line        *liner.State
	historyFile string
	glam        *glamour.TermRenderer
	index       *history.Index

	// printed tracks how much of the current reveal reached stdout.
	printed int

	// retrieval detail for the settling turn, printed after the answer
	sources     []backend.Source
	contextText string
}

// New creates a REPL with input history and line editing.
func New(cfg *config.Config, manager *store.Manager, client *backend.Client) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	r := &REPL{
		cfg:         cfg,
		manager:     manager,
		client:      client,
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	r.loadHistory()
	r.glam = newRenderer()
	return r
}

// SetOrchestrator wires the turn runner; the REPL is its sink.
func (r *REPL) SetOrchestrator(o *orchestrator.Orchestrator) {
	r.orch = o
}

// SetHistoryIndex enables the /search command.
func (r *REPL) SetHistoryIndex(ix *history.Index) {
	r.index = ix
}

func newRenderer() *glamour.TermRenderer {
	wrap := 100
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		wrap = w - 2
	}
	g, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return nil
	}
	return g
}

func (r *REPL) loadHistory() {
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

// Run is the main loop. It returns when the user quits.
func (r *REPL) Run(ctx context.Context) error {
	r.printWelcome()

	// Ctrl+C aborts an in-flight turn; at the prompt liner handles it.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if r.orch != nil && r.orch.Busy() {
				r.orch.Abort()
			}
		}
	}()

	for {
		input, err := r.line.Prompt(promptStyle.Render("you> "))
		if err == liner.ErrPromptAborted {
			continue
		}
		if err != nil {
			// EOF: persist and leave quietly.
			_ = r.manager.PersistCurrent()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if quit := r.dispatch(ctx, input); quit {
				_ = r.manager.PersistCurrent()
				return nil
			}
			continue
		}

		r.printed = 0
		if err := r.orch.Send(ctx, input); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
		}
	}
}

func (r *REPL) printWelcome() {
	fmt.Println(infoStyle.Render("ragdesk — chat over your indexed documents"))
	fmt.Println(infoStyle.Render("type /help for commands, Ctrl+D to quit"))
	fmt.Println()
}

// =============================================================================
// ORCHESTRATOR SINK
// =============================================================================

// Pending prints the assistant label before the reveal begins.
func (r *REPL) Pending(_ *model.Message) {
	r.sources = nil
	r.contextText = ""
	fmt.Print(infoStyle.Render("assistant> "))
}

// Sources holds the citations until Finalized prints them under the
// answer.
func (r *REPL) Sources(_ *model.Message, sources []backend.Source, contextText string) {
	r.sources = sources
	r.contextText = contextText
}

// Reveal prints only the unseen suffix; the visible text grows
// monotonically so the delta is always well defined.
func (r *REPL) Reveal(_ *model.Message, visible string) {
	if r.cfg.Stream.Disabled {
		return
	}
	if len(visible) > r.printed {
		fmt.Print(visible[r.printed:])
		r.printed = len(visible)
	}
}

// Finalized ends the answer with its meta line. When streaming is off
// nothing has been printed yet, so the whole answer is rendered at once.
func (r *REPL) Finalized(msg *model.Message, _ string, cancelled bool) {
	if r.printed == 0 && !cancelled {
		fmt.Println()
		fmt.Print(r.renderAnswer(msg.Content))
	} else {
		fmt.Println()
	}
	if msg.Meta != "" {
		fmt.Println(metaStyle.Render(msg.Meta))
	}
	if len(r.sources) > 0 {
		fmt.Println(infoStyle.Render("sources:"))
		fmt.Println(metaStyle.Render(orchestrator.FormatSourceList(r.sources)))
	}
	if r.contextText != "" {
		fmt.Println(infoStyle.Render("context:"))
		fmt.Println(metaStyle.Render(r.contextText))
	}
	r.sources = nil
	r.contextText = ""
	fmt.Println()
}

func (r *REPL) renderAnswer(text string) string {
	if r.glam != nil {
		if out, err := r.glam.Render(text); err == nil {
			return out
		}
	}
	return text + "\n"
}

// Failed reports a turn error. The transcript already carries the
// user-facing wording; print that rather than the raw error.
func (r *REPL) Failed(msg *model.Message, _ error) {
	fmt.Println(errorStyle.Render(msg.Content))
	fmt.Println()
}

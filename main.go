// ragdesk - a terminal client for chatting with your indexed documents.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/cli"
	"github.com/jeranaias/ragdesk/internal/config"
	"github.com/jeranaias/ragdesk/internal/history"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/orchestrator"
	"github.com/jeranaias/ragdesk/internal/store"
	"github.com/jeranaias/ragdesk/internal/stream"
	"github.com/jeranaias/ragdesk/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// options are the command-line switches. ragdesk has no subcommands;
// everything interactive lives behind the prompt.
type options struct {
	configPath string
	plain      bool
	version    bool
}

func parseArgs(args []string) (options, error) {
	var o options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--plain" || arg == "-p":
			o.plain = true
		case arg == "--version" || arg == "-v":
			o.version = true
		case arg == "--config" || arg == "-c":
			if i+1 >= len(args) {
				return o, fmt.Errorf("%s requires a path", arg)
			}
			i++
			o.configPath = args[i]
		case strings.HasPrefix(arg, "--config="):
			o.configPath = strings.TrimPrefix(arg, "--config=")
		case arg == "--help" || arg == "-h":
			printUsage()
			os.Exit(0)
		default:
			return o, fmt.Errorf("unknown flag: %s", arg)
		}
	}
	return o, nil
}

func printUsage() {
	fmt.Println(`ragdesk - chat with your indexed documents

Usage:
  ragdesk [flags]

Flags:
  -p, --plain         line-mode interface instead of the full-screen TUI
  -c, --config PATH   load configuration from PATH
  -v, --version       print version and exit
  -h, --help          show this help`)
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printUsage()
		os.Exit(2)
	}
	if opts.version {
		fmt.Printf("ragdesk %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.plain {
		cfg.UI.Plain = true
	}
	// A pipe or dumb terminal cannot host the full-screen UI.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		cfg.UI.Plain = true
	}
	config.SetGlobal(cfg)

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so diagnostics go to a file.
	if f, err := os.OpenFile(filepath.Join(dataDir, "ragdesk.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
		defer f.Close()
		log.SetOutput(f)
	} else {
		log.SetOutput(io.Discard)
	}
	log.Printf("ragdesk %s starting, backend %s", Version, cfg.BackendURL)
	defer log.Printf("ragdesk exiting")

	st, err := store.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	manager := store.NewManager(st, model.NewTranscript())
	if err := manager.Boot(); err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	client := backend.NewClient(cfg.BackendURL).
		WithChatTimeout(time.Duration(cfg.Chat.TimeoutSecs) * time.Second)

	params := orchestrator.Params{
		TopK:           cfg.Chat.TopK,
		Temperature:    cfg.Chat.Temperature,
		MaxTokens:      cfg.Chat.MaxTokens,
		IncludeContext: cfg.Chat.IncludeContext,
	}

	var index *history.Index
	if cfg.History.Enabled {
		ix, err := history.Open(filepath.Join(dataDir, "history.db"))
		if err != nil {
			// Search is a convenience; a broken index never blocks chat.
			fmt.Fprintf(os.Stderr, "warning: history index unavailable: %v\n", err)
		} else {
			index = ix
			defer index.Close()
			if err := index.Rebuild(st.Load()); err != nil {
				fmt.Fprintf(os.Stderr, "warning: history reindex failed: %v\n", err)
			}
		}
	}
	// The index trails the store by one run; reconcile on the way out.
	defer func() {
		if index != nil {
			_ = index.Rebuild(st.Load())
		}
	}()

	cps := cfg.Stream.CharsPerSecond
	if cfg.Stream.Disabled {
		cps = 1e9
	}

	if cfg.UI.Plain {
		return runPlain(cfg, manager, client, index, params, cps)
	}
	return runTUI(cfg, st, manager, client, index, params, cps)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// runTUI starts the full-screen bubbletea interface.
func runTUI(cfg *config.Config, st *store.Store, manager *store.Manager, client *backend.Client, index *history.Index, params orchestrator.Params, cps float64) error {
	sink := chat.NewSink()
	orch := orchestrator.New(client, manager, sink.AsOrchestratorSink(), params).
		WithRevealRate(cps, stream.TickInterval)

	m := chat.New(cfg, manager, orch, client, sink).WithHistoryIndex(index)

	// External rewrites of the session file refresh the sidebar.
	watcher, err := store.NewWatcher(st, 300*time.Millisecond)
	if err == nil {
		defer watcher.Close()
		go func() {
			for range watcher.Changed {
				sink.PushStoreChanged()
			}
		}()
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// runPlain starts the liner-based line-mode interface.
func runPlain(cfg *config.Config, manager *store.Manager, client *backend.Client, index *history.Index, params orchestrator.Params, cps float64) error {
	repl := cli.New(cfg, manager, client)
	defer repl.Close()

	orch := orchestrator.New(client, manager, repl, params).
		WithRevealRate(cps, stream.TickInterval)
	repl.SetOrchestrator(orch)
	if index != nil {
		repl.SetHistoryIndex(index)
	}

	return repl.Run(context.Background())
}

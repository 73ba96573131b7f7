// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs one chat turn end to end: append the user
// message, call the backend, pace the reveal of the answer, finalize and
// persist. One turn at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/ragdesk/internal/backend"
	"github.com/jeranaias/ragdesk/internal/markdown"
	"github.com/jeranaias/ragdesk/internal/model"
	"github.com/jeranaias/ragdesk/internal/store"
	"github.com/jeranaias/ragdesk/internal/stream"
)

// ===== ERRORS =====

var (
	// ErrBusy is returned when a turn is already in flight. The caller
	// keeps the input disabled while busy, so hitting this means a race,
	// not a user mistake.
	ErrBusy = errors.New("a request is already in flight")

	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("empty message")
)

// ===== PHASES =====

// Phase is where the current turn stands.
type Phase int

const (
	// PhaseIdle means no turn is in flight.
	PhaseIdle Phase = iota

	// PhaseAwaiting means the backend call is in flight.
	PhaseAwaiting

	// PhaseStreaming means the answer arrived and is being revealed.
	PhaseStreaming
)

// ===== SINK =====

// Sink receives presentation events during a turn. Implementations render
// to the TUI or the plain REPL; the orchestrator never prints.
type Sink interface {
	// Pending fires once when the assistant placeholder appears.
	Pending(msg *model.Message)

	// Reveal fires on every pacing tick with the currently visible text.
	Reveal(msg *model.Message, visible string)

	// Sources fires once before Finalized on a fully revealed turn,
	// carrying the retrieval citations and the optional context text.
	// It is skipped when the backend returned neither.
	Sources(msg *model.Message, sources []backend.Source, contextText string)

	// Finalized fires once at the end of a successful turn. html is the
	// rendered answer, empty when the reveal was cancelled (a cancelled
	// partial stays plain text).
	Finalized(msg *model.Message, html string, cancelled bool)

	// Failed fires once when the turn ends in an error. The placeholder
	// has already been finalized with a user-facing message.
	Failed(msg *model.Message, err error)
}

// ===== ORCHESTRATOR =====

// Chatter is the slice of the backend client a turn needs.
type Chatter interface {
	Chat(ctx context.Context, req *backend.ChatRequest) (*backend.ChatResponse, error)
}

// Params are the retrieval and generation knobs sent with every request.
type Params struct {
	TopK           int
	Temperature    float64
	MaxTokens      int
	IncludeContext bool
}

// Orchestrator serializes chat turns. It is the single writer of pending
// messages and the only caller of PersistCurrent during a turn; the
// manager's cancel hook points back at Abort, so switching conversations
// tears the turn down cleanly.
type Orchestrator struct {
	client  Chatter
	manager *store.Manager
	sink    Sink

	params Params
	cps    float64
	tick   time.Duration

	mu     sync.Mutex
	phase  Phase
	cancel context.CancelFunc
	token  *stream.Token
}

// New creates an orchestrator and registers its Abort as the manager's
// in-flight cancel hook.
func New(client Chatter, manager *store.Manager, sink Sink, params Params) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		manager: manager,
		sink:    sink,
		params:  params,
		cps:     stream.DefaultCharsPerSecond,
		tick:    stream.TickInterval,
	}
	manager.SetCancelFunc(o.Abort)
	return o
}

// WithRevealRate overrides the reveal pacing (tests).
func (o *Orchestrator) WithRevealRate(cps float64, tick time.Duration) *Orchestrator {
	if cps > 0 {
		o.cps = cps
	}
	if tick > 0 {
		o.tick = tick
	}
	return o
}

// SetParams replaces the retrieval parameters for subsequent turns.
func (o *Orchestrator) SetParams(p Params) {
	o.mu.Lock()
	o.params = p
	o.mu.Unlock()
}

// Phase returns the current turn phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Busy reports whether a turn is in flight.
func (o *Orchestrator) Busy() bool {
	return o.Phase() != PhaseIdle
}

// Abort cancels the in-flight turn, if any. During the backend call it
// cancels the request context; during the reveal it sets the stream token.
// Idle aborts are no-ops.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	cancel := o.cancel
	token := o.token
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	token.Cancel()
}

// ===== TURN =====

// Send runs one full chat turn and blocks until it settles. The returned
// error is ErrBusy / ErrEmptyMessage for rejected input; turn failures are
// reported through the sink and return nil, because by then the transcript
// already carries the outcome.
func (o *Orchestrator) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.phase != PhaseIdle {
		o.mu.Unlock()
		return ErrBusy
	}
	reqCtx, cancel := context.WithCancel(ctx)
	o.phase = PhaseAwaiting
	o.cancel = cancel
	o.token = stream.NewToken()
	token := o.token
	params := o.params
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		o.phase = PhaseIdle
		o.cancel = nil
		o.token = nil
		o.mu.Unlock()
	}()

	transcript := o.manager.Transcript()

	transcript.Append(model.RoleUser, text, "")

	// The snapshot lands between the two appends: the new user turn is in
	// the history, the unanswered placeholder is not.
	history := transcript.History()

	pending := transcript.AppendPending()
	o.sink.Pending(pending)

	resp, err := o.client.Chat(reqCtx, &backend.ChatRequest{
		Message:        text,
		History:        history,
		TopK:           params.TopK,
		Temperature:    params.Temperature,
		MaxTokens:      params.MaxTokens,
		IncludeContext: params.IncludeContext,
	})
	if err != nil {
		o.settleFailure(pending, err)
		return nil
	}

	o.mu.Lock()
	o.phase = PhaseStreaming
	o.mu.Unlock()

	revealed, cancelled := stream.Play(resp.Answer, stream.Options{
		CharsPerSecond: o.cps,
		Interval:       o.tick,
		Token:          token,
	}, func(visible string) {
		o.sink.Reveal(pending, visible)
	})

	if cancelled {
		transcript.Finalize(pending, revealed+stream.CancelMarker)
		pending.AppendMeta("stopped")
		o.persist()
		o.sink.Finalized(pending, "", true)
		return nil
	}

	transcript.Finalize(pending, resp.Answer)
	pending.AppendMeta(formatMeta(resp))
	o.persist()
	if len(resp.Sources) > 0 || resp.Context != "" {
		o.sink.Sources(pending, resp.Sources, resp.Context)
	}
	o.sink.Finalized(pending, markdown.Render(resp.Answer), false)
	return nil
}

// settleFailure turns an error outcome into a finalized assistant message
// so the conversation keeps its shape across reloads.
func (o *Orchestrator) settleFailure(pending *model.Message, err error) {
	transcript := o.manager.Transcript()
	transcript.Finalize(pending, failureText(err))
	if errors.Is(err, context.Canceled) {
		pending.AppendMeta("stopped")
	} else {
		pending.AppendMeta("error")
	}
	o.persist()
	o.sink.Failed(pending, err)
}

func (o *Orchestrator) persist() {
	// A persist failure must not eat the answer already on screen; the
	// dirty flag stays set and the next persist retries.
	_ = o.manager.PersistCurrent()
}

// ===== PRESENTATION HELPERS =====

// failureText maps a turn error onto the message shown in the transcript.
// Backend-reported messages pass through verbatim; everything else gets a
// stable wording.
func failureText(err error) string {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return "(stopped)"
	case errors.Is(err, backend.ErrTimeout):
		return "The request timed out. The backend may be busy; try again."
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return "Could not reach the backend: " + err.Error()
	}
}

// formatMeta builds the trailing meta line for a successful answer.
func formatMeta(resp *backend.ChatResponse) string {
	meta := fmt.Sprintf("%d ms", resp.LatencyMS)
	if n := len(resp.Sources); n == 1 {
		meta += " · 1 source"
	} else if n > 1 {
		meta += fmt.Sprintf(" · %d sources", n)
	}
	return meta
}

// FormatSourceList renders retrieval citations one per line for display
// under an answer.
func FormatSourceList(sources []backend.Source) string {
	if len(sources) == 0 {
		return ""
	}
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		line := fmt.Sprintf("%s · %s", s.Filename, s.PageNumber.Display())
		if snip := strings.TrimSpace(s.Snippet); snip != "" {
			line += ": " + snip
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package poller tracks a server-side index rebuild by polling its job
// status until the run finishes or the poller gives up.
package poller

import (
	"context"
	"time"

	"github.com/jeranaias/ragdesk/internal/backend"
)

// ===== CONSTANTS =====

const (
	// Interval between status polls after the immediate first one.
	Interval = 1500 * time.Millisecond

	// MaxConsecutiveFailures is how many poll errors in a row the poller
	// tolerates before abandoning the watch. A rebuild may still be
	// running server-side when that happens; the poller just stops
	// reporting on it.
	MaxConsecutiveFailures = 5
)

// ===== STATE MACHINE =====

// Event is what a single poll produced.
type Event int

const (
	// EventProgress means the job is still running; Job carries the
	// latest snapshot.
	EventProgress Event = iota

	// EventDone means the job finished; Job carries the terminal
	// snapshot and Job.Succeeded() tells the outcome.
	EventDone

	// EventRetry means this poll failed but the watch continues.
	EventRetry

	// EventAbandoned means too many polls failed in a row and the watch
	// is over.
	EventAbandoned
)

// Watch is the pure poll-loop state: a consecutive-failure counter and a
// terminal flag. Transport lives elsewhere; tests drive Watch directly
// with canned results.
type Watch struct {
	failures int
	finished bool
}

// NewWatch starts a fresh watch.
func NewWatch() *Watch {
	return &Watch{}
}

// Observe folds one poll result into the watch and classifies it. A
// successful poll resets the failure counter; a failed one increments it
// and abandons the watch at MaxConsecutiveFailures. Observing after the
// watch finished reports EventDone or EventAbandoned again without
// changing state.
func (w *Watch) Observe(job *backend.RebuildJob, err error) Event {
	if w.finished {
		if w.failures >= MaxConsecutiveFailures {
			return EventAbandoned
		}
		return EventDone
	}
	if err != nil {
		w.failures++
		if w.failures >= MaxConsecutiveFailures {
			w.finished = true
			return EventAbandoned
		}
		return EventRetry
	}
	w.failures = 0
	if !job.Running {
		w.finished = true
		return EventDone
	}
	return EventProgress
}

// Finished reports whether the watch reached a terminal event.
func (w *Watch) Finished() bool {
	return w.finished
}

// Failures returns the current consecutive-failure count.
func (w *Watch) Failures() int {
	return w.failures
}

// ===== RUNNER =====

// Update is one notification from a running Poller.
type Update struct {
	Event Event

	// Job is set for EventProgress and EventDone.
	Job *backend.RebuildJob

	// Err is set for EventRetry and EventAbandoned.
	Err error

	// Status is a fresh backend snapshot fetched after a successful
	// finish, so the caller can refresh its header without another
	// round trip. Nil when the refresh itself failed or the watch did
	// not end in EventDone.
	Status *backend.Status
}

// JobFetcher is the slice of the backend client the poller needs.
type JobFetcher interface {
	RebuildStatus(ctx context.Context) (*backend.RebuildJob, error)
	StatusRefresh(ctx context.Context) (*backend.Status, error)
}

// Run polls fetcher until the watch terminates, sending every transition
// to updates. The first poll happens immediately, the rest at Interval.
// When the job ends normally, Run fetches one final status snapshot and
// attaches it to the EventDone update. Run closes updates before
// returning. Cancelling ctx stops the watch without a terminal event.
func Run(ctx context.Context, fetcher JobFetcher, updates chan<- Update) {
	run(ctx, fetcher, updates, Interval)
}

func run(ctx context.Context, fetcher JobFetcher, updates chan<- Update, interval time.Duration) {
	defer close(updates)

	w := NewWatch()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := fetcher.RebuildStatus(ctx)
		if ctx.Err() != nil {
			return
		}
		ev := w.Observe(job, err)
		up := Update{Event: ev, Job: job, Err: err}
		if ev == EventDone {
			// Best effort header refresh. A failure here does not
			// taint the finished rebuild.
			if st, rerr := fetcher.StatusRefresh(ctx); rerr == nil {
				up.Status = st
			}
		}

		select {
		case updates <- up:
		case <-ctx.Done():
			return
		}
		if w.Finished() {
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store persists named conversations for ragdesk.
package store

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// STORE CHANGE WATCHER
// =============================================================================

// Watcher notifies when the store file is rewritten by another process (a
// second ragdesk instance, a sync tool). Notifications are debounced: the
// atomic-rename persist pattern produces several filesystem events per
// write, and the consumer only needs one refresh.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending bool
	done    chan struct{}

	// Changed receives one signal per debounced external write.
	Changed chan struct{}
}

// NewWatcher creates a watcher over the store's directory. Watching the
// directory rather than the file survives the rename that atomic writes do.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		store:    store,
		watcher:  fsw,
		debounce: debounce,
		done:     make(chan struct{}),
		Changed:  make(chan struct{}, 1),
	}
	go w.run()
	return w, nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

// run consumes raw filesystem events and emits debounced change signals.
func (w *Watcher) run() {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-w.done:
			timer.Stop()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != storeFile {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			if !w.pending {
				w.pending = true
				timer.Reset(w.debounce)
			}
			w.mu.Unlock()

		case <-timer.C:
			w.mu.Lock()
			w.pending = false
			w.mu.Unlock()
			select {
			case w.Changed <- struct{}{}:
			default:
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the UI just stops getting
			// refresh hints.
		}
	}
}

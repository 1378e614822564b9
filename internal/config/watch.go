// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives the freshly loaded config, or the load error.
type ReloadFunc func(*Config, error)

// Watcher reloads a config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself: editors
// that save by rename would otherwise detach the watch.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload ReloadFunc
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending time.Time // zero when nothing is pending

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher creates a watcher for path. Call Start to begin.
func NewWatcher(path string, debounce time.Duration, fn ReloadFunc) (*Watcher, error) {
	if fn == nil {
		return nil, fmt.Errorf("reload callback is nil")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		onReload: fn,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Start watches until ctx is canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	go w.processEvents(ctx)
	go w.processPending(ctx)
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Close()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) processPending(ctx context.Context) {
	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case now := <-ticker.C:
			w.mu.Lock()
			due := !w.pending.IsZero() && now.Sub(w.pending) >= w.debounce
			if due {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if due {
				w.onReload(Load(w.path))
			}
		}
	}
}

// Watch is a convenience wrapper: it starts a Watcher with the default
// debounce that stops when ctx is canceled.
func Watch(ctx context.Context, path string, fn ReloadFunc) error {
	w, err := NewWatcher(path, DefaultDebounce, fn)
	if err != nil {
		return err
	}
	return w.Start(ctx)
}

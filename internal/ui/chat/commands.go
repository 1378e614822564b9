// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/storage"
)

// saveTimeout bounds a single archive write.
const saveTimeout = 5 * time.Second

// Archiver persists transcripts. *storage.Store satisfies it.
type Archiver interface {
	Save(ctx context.Context, t *storage.Transcript) error
}

// withTimeout returns a context bounded by d, or an unbounded one when d <= 0.
func withTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), d)
}

// startCmd opens the session. With an opening prompt this is a network call.
func startCmd(ctrl *counsel.Controller, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return StartedMsg{Err: ctrl.Start(ctx)}
	}
}

// completeCmd runs the network half of a send.
func completeCmd(ex *counsel.Exchange, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		return ReplyMsg{Reply: ex.Complete(ctx)}
	}
}

// endCmd asks for the closing prayer.
func endCmd(ctrl *counsel.Controller, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := withTimeout(timeout)
		defer cancel()
		reply, err := ctrl.End(ctx)
		return EndedMsg{Reply: reply, Err: err}
	}
}

// saveCmd archives a copy of the transcript taken at call time.
func saveCmd(store Archiver, t *storage.Transcript, auto bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		err := store.Save(ctx, t)
		return SavedMsg{ID: t.ID, Auto: auto, Err: err}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/grace-tui/internal/config"
	"github.com/jeranaias/grace-tui/internal/ui/chat"
	"github.com/jeranaias/grace-tui/internal/ui/styles"
)

// RunTUI opens the full-screen session. Without a terminal on both stdin
// and stdout it falls back to the line-based chat.
func RunTUI(ctx context.Context, env *Env) error {
	if !isTerminal(env.In) || !isTerminal(env.Out) {
		env.Logger.Info("tui: no terminal, using line mode")
		return HandleChat(ctx, env)
	}

	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	ctrl, err := env.Controller()
	if err != nil {
		return err
	}

	opts := chat.Options{
		Autosave:       cfg.Storage.Autosave,
		Timeout:        cfg.Timeout()*time.Duration(len(cfg.Gemini.Models)) + 5*time.Second,
		ShowTimestamps: cfg.UI.ShowTimestamps,
		WordWrap:       cfg.UI.WordWrap,
	}
	store, err := env.OpenStore()
	if err != nil {
		// The session still works; saving reports the missing archive.
		env.Logger.Warn("tui: archive unavailable", "error", err)
	} else {
		opts.Store = store
		defer store.Close()
	}

	theme := styles.NewTheme(styles.ParseMode(cfg.UI.Theme))
	m := chat.New(ctrl, theme, opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(env.In),
		tea.WithOutput(env.Out),
	)

	// Persona edits apply without a restart.
	path, _ := env.ConfigPath()
	err = config.Watch(ctx, path, func(next *config.Config, err error) {
		if err != nil {
			p.Send(chat.PersonaMsg{Err: err})
			return
		}
		p.Send(chat.PersonaMsg{Persona: next.CounselPersona()})
	})
	if err != nil {
		env.Logger.Warn("tui: config watch disabled", "error", err)
	}

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jeranaias/grace-tui/internal/config"
	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/storage"
)

// Streams are the standard streams a command reads and writes.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// StdStreams returns the process's standard streams.
func StdStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Env carries everything a command handler needs.
type Env struct {
	Streams
	Args   Args
	Logger *slog.Logger

	configPath string
	cfg        *config.Config
	cfgErr     error
	loaded     bool
}

// NewEnv creates an Env. The config file is not read until LoadConfig.
func NewEnv(args Args, streams Streams) *Env {
	return &Env{
		Streams:    streams,
		Args:       args,
		Logger:     slog.Default(),
		configPath: args.ConfigPath,
	}
}

// ConfigPath returns the config file location.
func (e *Env) ConfigPath() (string, error) {
	if e.configPath != "" {
		return e.configPath, nil
	}
	p, err := config.DefaultPath()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	e.configPath = p
	return p, nil
}

// LoadConfig reads and validates the configuration once. A --theme flag
// overrides ui.theme.
func (e *Env) LoadConfig() (*config.Config, error) {
	if e.loaded {
		return e.cfg, e.cfgErr
	}
	e.loaded = true

	path, err := e.ConfigPath()
	if err != nil {
		e.cfgErr = err
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		e.cfgErr = &ConfigError{Err: err}
		return nil, e.cfgErr
	}
	if e.Args.Theme != "" {
		theme := strings.ToLower(e.Args.Theme)
		if theme != "dark" && theme != "light" && theme != "auto" {
			e.cfgErr = &UsageError{Reason: fmt.Sprintf("invalid --theme %q, must be one of: dark, light, auto", e.Args.Theme)}
			return nil, e.cfgErr
		}
		cfg.UI.Theme = theme
	}
	e.cfg = cfg
	return cfg, nil
}

// Controller builds a conversation controller from the loaded config.
func (e *Env) Controller(opts ...counsel.Option) (*counsel.Controller, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, err
	}
	client := cfg.NewClient().
		WithLogger(e.Logger).
		WithUserAgent("grace/" + Version)

	base := []counsel.Option{
		counsel.WithLogger(e.Logger),
		counsel.WithGenerationConfig(cfg.GenerationConfig()),
	}
	return counsel.New(client, cfg.CounselPersona(), append(base, opts...)...), nil
}

// OpenStore opens the transcript archive named in the config.
func (e *Env) OpenStore() (*storage.Store, error) {
	cfg, err := e.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open transcript archive: %w", err)
	}
	return store, nil
}

// Markdown reports whether replies should be rendered as markdown.
func (e *Env) Markdown() bool {
	return !e.Args.NoMarkdown && isTerminal(e.Out) && ColorsEnabled()
}

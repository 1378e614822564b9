// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging sets up the process-wide slog logger.
//
// The terminal belongs to the UI, so records go to a file
// (~/.grace/grace.log by default) and never to stdout or stderr.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LevelEnv overrides the configured level when set.
const LevelEnv = "GRACE_LOG_LEVEL"

// ParseLevel maps "debug", "info", "warn"/"warning" and "error" to slog
// levels. Anything else is Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ResolveLevel returns the level from LevelEnv if set, else configured.
func ResolveLevel(configured string) slog.Level {
	if env := os.Getenv(LevelEnv); strings.TrimSpace(env) != "" {
		return ParseLevel(env)
	}
	return ParseLevel(configured)
}

// New returns a text logger writing to w.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenFile opens (appending) the log file at path, creating its directory.
// The caller closes the returned file.
func OpenFile(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(f, level), f, nil
}

// Setup installs the default logger. When the file cannot be opened the
// default logger discards output and the error is returned for the caller to
// report once. The returned closer is never nil.
func Setup(path, level string) (io.Closer, error) {
	if path == "" {
		slog.SetDefault(Discard())
		return nopCloser{}, nil
	}
	logger, closer, err := OpenFile(path, ResolveLevel(level))
	if err != nil {
		slog.SetDefault(Discard())
		return nopCloser{}, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

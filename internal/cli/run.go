// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jeranaias/grace-tui/internal/config"
	"github.com/jeranaias/grace-tui/internal/logging"
)

// Run parses argv, executes the command and returns the exit status.
func Run(ctx context.Context, argv []string, streams Streams) int {
	cmd, args := Parse(argv)

	switch cmd {
	case CmdHelp:
		PrintUsage(streams.Out)
		return ExitSuccess
	case CmdVersion:
		PrintVersion(streams.Out)
		return ExitSuccess
	case CmdUnknown:
		fmt.Fprintf(streams.Err, "%s unknown command %q\n", ErrorStyle.Render("[ERROR]"), args.Name)
		if s := SuggestCommand(args.Name); s != "" {
			fmt.Fprintf(streams.Err, "\nDid you mean: grace %s\n", s)
		}
		fmt.Fprintln(streams.Err, "\nRun 'grace help' for usage.")
		return ExitUsageError
	}

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(streams.Err, "%s .env: %v\n", WarningStyle.Render("[!]"), err)
	}

	env := NewEnv(args, streams)
	cfg, err := env.LoadConfig()
	if err != nil && cmd != CmdConfig {
		DisplayError(streams.Err, err)
		return ExitCode(err)
	}
	env.Logger = logging.Discard()
	if cfg != nil {
		closer, err := logging.Setup(cfg.Log.Path, cfg.Log.Level)
		if err != nil {
			fmt.Fprintf(streams.Err, "%s logging disabled: %v\n", WarningStyle.Render("[!]"), err)
		}
		defer closer.Close()
		env.Logger = slog.Default().With("command", cmd.String())
	}

	err = dispatch(ctx, cmd, env)
	if err != nil {
		env.Logger.Error("command failed", "error", err)
		DisplayError(streams.Err, err)
	}
	return ExitCode(err)
}

func dispatch(ctx context.Context, cmd Command, env *Env) error {
	switch cmd {
	case CmdChat:
		return HandleChat(ctx, env)
	case CmdAsk:
		return HandleAsk(ctx, env)
	case CmdHistory:
		return HandleHistory(ctx, env)
	case CmdConfig:
		return HandleConfig(ctx, env)
	}
	return RunTUI(ctx, env)
}

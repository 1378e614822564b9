// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/util"
)

const askUsage = `grace ask [--show-greeting] <message>`

// maxStdinMessage caps a message read from a pipe.
const maxStdinMessage = 64 << 10

// HandleAsk starts a session, sends one message and prints the reply.
// The message comes from the arguments or, when none are given, from a
// piped stdin. The greeting is printed only with --show-greeting.
//
// A missing API key is a ConfigError. A remote failure prints the
// persona's apology and still succeeds.
func HandleAsk(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Rest, "show-greeting")

	text := JoinPositionalArgs(p, 0)
	if util.IsBlank(text) && env.In != nil && !isTerminal(env.In) {
		data, err := io.ReadAll(io.LimitReader(env.In, maxStdinMessage))
		if err != nil {
			return fmt.Errorf("read message from stdin: %w", err)
		}
		text = string(data)
	}
	if util.IsBlank(text) {
		return ErrMissingArgument("message", askUsage)
	}

	ctrl, err := env.Controller()
	if err != nil {
		return err
	}
	persona := ctrl.Persona()
	r := newRenderer(env, persona.Name)

	if err := ctrl.Start(ctx); err != nil {
		if errors.Is(err, counsel.ErrNotConfigured) {
			return &ConfigError{Err: err}
		}
		env.Logger.Warn("ask: session did not start", "error", err)
		r.PrintBody(&model.Message{Role: model.RoleModel, Content: persona.Apology})
		return nil
	}
	if p.BoolFlag("show-greeting") {
		msgs := ctrl.Messages()
		r.PrintBody(&msgs[len(msgs)-1])
		fmt.Fprintln(env.Out)
	}

	reply, err := ctrl.Send(ctx, text)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	r.PrintBody(reply)
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package counsel

import (
	"context"
	"sync"

	"github.com/jeranaias/grace-tui/internal/gemini"
	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/util"
)

// Exchange is one in-flight turn created by Begin (or End). It is the
// network half of Send and may run on any goroutine.
type Exchange struct {
	c          *Controller
	prompt     string
	user       *model.Message
	persona    Persona
	history    []gemini.Content
	generation uint64

	once  sync.Once
	reply *model.Message
}

// User returns the optimistic user message, or nil for hidden prompts.
func (e *Exchange) User() *model.Message {
	if e.user == nil {
		return nil
	}
	m := *e.user
	return &m
}

// Complete performs the request and appends exactly one reply: the model's
// text or the apology. It returns nil if the session was reset in the
// meantime. Calling it again returns the first result without a new request.
func (e *Exchange) Complete(ctx context.Context) *model.Message {
	e.once.Do(func() {
		e.reply = e.complete(ctx)
	})
	return e.reply
}

func (e *Exchange) complete(ctx context.Context) *model.Message {
	c := e.c
	text, _, err := c.generate(ctx, e.persona, e.history, e.prompt)

	c.mu.Lock()
	if e.generation != c.generation {
		c.mu.Unlock()
		c.logger.Info("reply dropped after reset")
		return nil
	}

	var reply model.Message
	if err != nil {
		reply = model.NewMessageAt(model.RoleModel, e.persona.Apology, c.now())
	} else {
		// Only successful turns join the wire history.
		c.history = append(c.history, gemini.UserContent(e.prompt), gemini.ModelContent(text))
		reply = model.NewMessageAt(model.RoleModel, text, c.now())
	}
	c.conv.Append(reply)
	c.conv.SetLoading(false)
	snap := c.conv.Snapshot()
	c.mu.Unlock()

	c.notify(snap)
	return &reply
}

func normalizeInput(s string) string {
	s = util.NormalizeInput(s)
	if util.IsBlank(s) {
		return ""
	}
	return s
}

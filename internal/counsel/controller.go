// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package counsel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/grace-tui/internal/gemini"
	"github.com/jeranaias/grace-tui/internal/model"
)

// Generator produces one model reply. *gemini.Client satisfies it.
type Generator interface {
	IsConfigured() bool
	Generate(ctx context.Context, model string, req *gemini.Request) (*gemini.Response, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger for attempt and fallback records.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGenerationConfig sets sampling parameters sent with every request.
func WithGenerationConfig(gc *gemini.GenerationConfig) Option {
	return func(c *Controller) { c.genConfig = gc }
}

// OnChange registers fn to be called with a fresh snapshot after every
// mutation. fn runs outside the controller's lock.
func OnChange(fn func(model.Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// WithClock overrides the timestamp source (tests).
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller runs one counseling conversation at a time.
type Controller struct {
	gen       Generator
	logger    *slog.Logger
	genConfig *gemini.GenerationConfig
	onChange  func(model.Snapshot)
	now       func() time.Time

	mu      sync.Mutex
	persona Persona
	pending *Persona
	conv    *model.Conversation
	history []gemini.Content
	// generation increments on Reset; an exchange from an older
	// generation must not touch the transcript.
	generation uint64
}

// New creates a controller. The persona is normalized: blank texts fall
// back to the built-in ones.
func New(gen Generator, persona Persona, opts ...Option) *Controller {
	c := &Controller{
		gen:     gen,
		logger:  slog.Default(),
		now:     time.Now,
		persona: persona.normalized(),
		conv:    model.NewConversation(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Persona returns the persona in effect.
func (c *Controller) Persona() Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.persona
	p.Models = append([]string(nil), c.persona.Models...)
	return p
}

// SetPersona replaces the persona. A session in progress keeps the old one;
// the new one applies from the next Reset.
func (c *Controller) SetPersona(p Persona) {
	p = p.normalized()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.conv.Started() && !c.conv.Loading() {
		c.persona = p
		c.pending = nil
		return
	}
	c.pending = &p
}

// Snapshot returns a copy of the conversation state.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// Messages returns a copy of the transcript.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Messages()
}

// Started reports whether the session has started.
func (c *Controller) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Started()
}

// Loading reports whether a request is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Loading()
}

// Start opens the session with a greeting. With an opening prompt the
// greeting comes from the model; otherwise the persona's fixed greeting is
// used and no request is made. On failure nothing is appended and the
// session stays closed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.conv.Started():
		c.mu.Unlock()
		return ErrAlreadyStarted
	case c.conv.Loading():
		c.mu.Unlock()
		return ErrBusy
	case c.gen == nil || !c.gen.IsConfigured():
		c.mu.Unlock()
		c.logger.Warn("session start refused", "reason", "not_configured")
		return ErrNotConfigured
	}

	persona := c.persona
	if strings.TrimSpace(persona.OpeningPrompt) == "" {
		c.conv.Append(model.NewMessageAt(model.RoleModel, persona.Greeting, c.now()))
		c.conv.MarkStarted()
		snap := c.conv.Snapshot()
		c.mu.Unlock()
		c.logger.Info("session started", "persona", persona.Name, "greeting", "fixed")
		c.notify(snap)
		return nil
	}

	c.conv.SetLoading(true)
	gen := c.generation
	history := c.historyCopy()
	snap := c.conv.Snapshot()
	c.mu.Unlock()
	c.notify(snap)

	text, used, err := c.generate(ctx, persona, history, persona.OpeningPrompt)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return ErrDiscarded
	}
	c.conv.SetLoading(false)
	if err != nil {
		snap = c.conv.Snapshot()
		c.mu.Unlock()
		c.notify(snap)
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	c.history = append(c.history, gemini.UserContent(persona.OpeningPrompt), gemini.ModelContent(text))
	c.conv.Append(model.NewMessageAt(model.RoleModel, text, c.now()))
	c.conv.MarkStarted()
	snap = c.conv.Snapshot()
	c.mu.Unlock()

	c.logger.Info("session started", "persona", persona.Name, "model", used)
	c.notify(snap)
	return nil
}

// Send appends text as a user message and then exactly one reply. Remote
// failures become the apology message; the returned error is only ever one
// of the precondition errors (or ErrDiscarded after a Reset).
func (c *Controller) Send(ctx context.Context, text string) (*model.Message, error) {
	ex, err := c.Begin(text)
	if err != nil {
		return nil, err
	}
	reply := ex.Complete(ctx)
	if reply == nil {
		return nil, ErrDiscarded
	}
	return reply, nil
}

// Begin appends the user message and marks the controller loading. The
// caller must call Complete on the returned exchange.
func (c *Controller) Begin(text string) (*Exchange, error) {
	text = normalizeInput(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	if c.conv.Loading() {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if !c.conv.Started() {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}

	user := model.NewMessageAt(model.RoleUser, text, c.now())
	c.conv.Append(user)
	ex := c.beginLocked(text, &user)
	snap := c.conv.Snapshot()
	c.mu.Unlock()

	c.notify(snap)
	return ex, nil
}

// End asks the model to wrap up with the persona's closing prompt. The
// prompt itself is not shown. Without a closing prompt the farewell text is
// appended directly. The session stays open.
func (c *Controller) End(ctx context.Context) (*model.Message, error) {
	c.mu.Lock()
	if !c.conv.Started() {
		c.mu.Unlock()
		return nil, ErrNotStarted
	}
	if c.conv.Loading() {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	if strings.TrimSpace(c.persona.ClosingPrompt) == "" {
		msg := model.NewMessageAt(model.RoleModel, c.persona.Farewell, c.now())
		c.conv.Append(msg)
		snap := c.conv.Snapshot()
		c.mu.Unlock()
		c.notify(snap)
		return &msg, nil
	}

	ex := c.beginLocked(c.persona.ClosingPrompt, nil)
	snap := c.conv.Snapshot()
	c.mu.Unlock()
	c.notify(snap)

	reply := ex.Complete(ctx)
	if reply == nil {
		return nil, ErrDiscarded
	}
	return reply, nil
}

// Reset discards the transcript and the chat history and returns to the
// not-started state. A reply still in flight is dropped when it lands.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.generation++
	c.conv.Reset()
	c.history = nil
	if c.pending != nil {
		c.persona = *c.pending
		c.pending = nil
	}
	snap := c.conv.Snapshot()
	c.mu.Unlock()

	c.logger.Info("session reset", "conversation", snap.ID)
	c.notify(snap)
}

// beginLocked marks loading and captures what the exchange needs. c.mu must
// be held.
func (c *Controller) beginLocked(prompt string, user *model.Message) *Exchange {
	c.conv.SetLoading(true)
	return &Exchange{
		c:          c,
		prompt:     prompt,
		user:       user,
		persona:    c.persona,
		history:    c.historyCopy(),
		generation: c.generation,
	}
}

func (c *Controller) historyCopy() []gemini.Content {
	out := make([]gemini.Content, len(c.history))
	copy(out, c.history)
	return out
}

// generate runs the fallback loop: models are tried in order and the first
// non-blank reply wins.
func (c *Controller) generate(ctx context.Context, p Persona, history []gemini.Content, prompt string) (string, string, error) {
	req := &gemini.Request{
		Contents:          append(history, gemini.UserContent(prompt)),
		SystemInstruction: gemini.SystemInstruction(p.SystemInstruction),
		GenerationConfig:  c.genConfig,
	}

	var lastErr error
	for i, name := range p.Models {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		resp, err := c.gen.Generate(ctx, name, req)
		if err == nil {
			switch {
			case resp == nil:
				err = gemini.ErrMalformedResponse
			case resp.Error != nil:
				err = &gemini.APIError{Code: resp.Error.Code, Status: resp.Error.Status, Message: resp.Error.Message}
			case strings.TrimSpace(resp.Text()) == "":
				err = gemini.ErrEmptyResponse
			default:
				c.logger.Debug("model replied", "model", name, "attempt", i+1, "duration", time.Since(start).Round(time.Millisecond))
				return strings.TrimSpace(resp.Text()), name, nil
			}
		}

		lastErr = err
		c.logger.Warn("model attempt failed",
			"model", name,
			"attempt", i+1,
			"of", len(p.Models),
			"reason", gemini.Reason(err),
			"error", err)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no candidate models")
	}
	c.logger.Error("all candidate models failed", "models", strings.Join(p.Models, ","), "error", lastErr)
	return "", "", fmt.Errorf("%w: %w", ErrExhausted, lastErr)
}

func (c *Controller) notify(snap model.Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}

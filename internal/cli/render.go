// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/grace-tui/internal/model"
)

// renderer prints transcript messages in line mode.
type renderer struct {
	out      io.Writer
	speaker  string
	clock    bool
	markdown *glamour.TermRenderer
}

// newRenderer builds a renderer for env. Markdown rendering is used only
// when stdout is a color terminal; glamour failures fall back to plain text.
func newRenderer(env *Env, speaker string) *renderer {
	r := &renderer{out: env.Out, speaker: speaker}
	cfg, err := env.LoadConfig()
	if err != nil {
		return r
	}
	r.clock = cfg.UI.ShowTimestamps
	if !env.Markdown() {
		return r
	}

	width := terminalWidth(env.Out) - 4
	if cfg.UI.WordWrap > 0 && cfg.UI.WordWrap < width {
		width = cfg.UI.WordWrap
	}
	style := glamour.WithAutoStyle()
	if cfg.UI.Theme != "auto" {
		style = glamour.WithStandardStyle(cfg.UI.Theme)
	}
	if md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width)); err == nil {
		r.markdown = md
	}
	return r
}

// header returns the "Speaker  15:04" caption for msg.
func (r *renderer) header(msg *model.Message) string {
	name := SpeakerStyle.Render(r.speaker)
	if msg.IsUser() {
		name = YouStyle.Render("You")
	}
	if r.clock {
		name += "  " + DimStyle.Render(msg.Clock())
	}
	return name
}

// body returns the message text, rendered when markdown is enabled.
func (r *renderer) body(msg *model.Message) string {
	if r.markdown == nil || msg.IsUser() {
		return msg.Content
	}
	out, err := r.markdown.Render(msg.Content)
	if err != nil {
		return msg.Content
	}
	return strings.Trim(out, "\n")
}

// Print writes one message with its caption.
func (r *renderer) Print(msg *model.Message) {
	if msg == nil {
		return
	}
	fmt.Fprintln(r.out, r.header(msg))
	fmt.Fprintln(r.out, r.body(msg))
	fmt.Fprintln(r.out)
}

// PrintBody writes only the message text, for scripted use.
func (r *renderer) PrintBody(msg *model.Message) {
	if msg == nil {
		return
	}
	fmt.Fprintln(r.out, r.body(msg))
}

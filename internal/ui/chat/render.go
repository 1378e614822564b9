// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/util"
)

// listeningText is shown next to the spinner while a reply is on its way.
const listeningText = "Listening..."

// renderCache holds rendered message blocks keyed by message ID. Messages
// never change once appended, so entries live until the next resize.
type renderCache struct {
	width int
	md    *glamour.TermRenderer
	style string
	items map[string]string
}

func newRenderCache() *renderCache {
	return &renderCache{items: make(map[string]string)}
}

// markdown renders counselor text. When glamour fails the plain text is
// wrapped instead.
func (rc *renderCache) markdown(content string, width int, style string) string {
	if rc.md == nil || rc.width != width || rc.style != style {
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
			glamour.WithPreservedNewLines(),
		)
		if err != nil {
			return wrapPlain(content, width)
		}
		rc.md = md
		rc.width = width
		rc.style = style
	}
	out, err := rc.md.Render(content)
	if err != nil {
		return wrapPlain(content, width)
	}
	return strings.Trim(out, "\n")
}

// wrapPlain wraps text to width columns when it does not already fit.
func wrapPlain(content string, width int) string {
	if lipgloss.Width(content) <= width {
		return content
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// renderMessage draws one bubble with its caption. User messages sit on the
// right and counselor messages on the left.
func (m *Model) renderMessage(msg model.Message, speaker string) string {
	if cached, ok := m.cache.items[msg.ID]; ok {
		return cached
	}

	inner := m.contentWidth()
	var bubble, caption string
	if msg.IsUser() {
		bubble = m.theme.UserBubble.Render(wrapPlain(msg.Content, inner))
		caption = "You"
		if m.opts.ShowTimestamps {
			caption = m.theme.Timestamp.Render(msg.Clock()) + "  " + m.theme.Speaker.Render(caption)
		} else {
			caption = m.theme.Speaker.Render(caption)
		}
	} else {
		body := m.cache.markdown(msg.Content, inner, m.theme.GlamourStyle())
		bubble = m.theme.CounselorBubble.Render(body)
		caption = m.theme.Speaker.Render(speaker)
		if m.opts.ShowTimestamps {
			caption += "  " + m.theme.Timestamp.Render(msg.Clock())
		}
	}

	align := lipgloss.Left
	if msg.IsUser() {
		align = lipgloss.Right
	}
	block := lipgloss.JoinVertical(align, bubble, caption)
	out := lipgloss.PlaceHorizontal(m.viewport.Width, align, block)

	m.cache.items[msg.ID] = out
	return out
}

// renderTranscript draws every message and, while loading, the listening
// indicator.
func (m *Model) renderTranscript() string {
	snap := m.ctrl.Snapshot()
	speaker := m.ctrl.Persona().Name

	parts := make([]string, 0, len(snap.Messages)+1)
	for _, msg := range snap.Messages {
		parts = append(parts, m.renderMessage(msg, speaker))
	}
	if snap.Loading && snap.Started {
		parts = append(parts, m.spinner.View()+" "+m.theme.ListeningText.Render(listeningText))
	}
	return strings.Join(parts, "\n\n")
}

// contentWidth is the text width inside a bubble: the bubble width minus
// border and padding, capped by the configured word wrap.
func (m *Model) contentWidth() int {
	w := m.theme.BubbleWidth() - 4
	if m.opts.WordWrap > 0 && w > m.opts.WordWrap {
		w = m.opts.WordWrap
	}
	if w < 10 {
		w = 10
	}
	return w
}

// truncateID shortens a transcript ID for status lines.
func truncateID(id string) string {
	return util.TruncateWidth(id, 8)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/util"
)

// SummaryLength is the rune limit of an auto-generated summary.
const SummaryLength = 50

// DefaultSummary is used when a transcript has no user message yet.
const DefaultSummary = "New conversation"

// Transcript is an archived conversation.
type Transcript struct {
	ID        string          `json:"id"`
	Persona   string          `json:"persona"`
	Models    []string        `json:"models"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Summary   string          `json:"summary"`
	Messages  []model.Message `json:"messages"`
}

// TranscriptMeta is the listing view of a Transcript.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Persona      string    `json:"persona"`
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// FromSnapshot builds a transcript from a controller snapshot. The
// conversation ID becomes the transcript ID, so saving the same session
// twice updates one record.
func FromSnapshot(snap model.Snapshot, persona string, models []string) *Transcript {
	t := &Transcript{
		ID:        snap.ID,
		Persona:   persona,
		Models:    append([]string(nil), models...),
		CreatedAt: snap.CreatedAt,
		Messages:  snap.Messages,
	}
	t.Summary = Summarize(t.Messages)
	return t
}

// Summarize returns the first user message, flattened to one line and cut
// to SummaryLength runes.
func Summarize(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role == model.RoleUser && !util.IsBlank(m.Content) {
			return util.TruncateRunes(util.Flatten(m.Content), SummaryLength)
		}
	}
	return DefaultSummary
}

// MessageCount returns the number of messages.
func (t *Transcript) MessageCount() int {
	return len(t.Messages)
}

// Meta returns the listing view.
func (t *Transcript) Meta() TranscriptMeta {
	return TranscriptMeta{
		ID:           t.ID,
		Persona:      t.Persona,
		Summary:      t.Summary,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		MessageCount: len(t.Messages),
	}
}

// FormatList renders transcripts as a fixed-width table for the terminal.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved conversations."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s %s\n", pad("ID", 8), pad("Updated", 16), pad("Msgs", 5), "Summary")
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	for _, m := range metas {
		id := m.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(&sb, "%s %s %s %s\n",
			pad(id, 8),
			pad(m.UpdatedAt.Local().Format("2006-01-02 15:04"), 16),
			pad(fmt.Sprint(m.MessageCount), 5),
			util.TruncateWidth(m.Summary, 40))
	}
	return sb.String()
}

// pad right-pads s to width display columns.
func pad(s string, width int) string {
	if w := util.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

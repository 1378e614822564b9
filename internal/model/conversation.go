// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered transcript plus session state.
//
// Messages are append-only: insertion order is display order. The started
// flag is set by the opening greeting and the loading flag marks a request
// in flight. The zero value is not usable; call NewConversation.
type Conversation struct {
	ID        string
	CreatedAt time.Time

	messages []Message
	started  bool
	loading  bool
}

// NewConversation creates an empty, not-started conversation.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		messages:  make([]Message, 0, 16),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds msg to the end of the transcript.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the transcript in display order.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// FirstUser returns the earliest user message.
func (c *Conversation) FirstUser() (Message, bool) {
	for _, m := range c.messages {
		if m.Role == RoleUser {
			return m, true
		}
	}
	return Message{}, false
}

// =============================================================================
// SESSION STATE
// =============================================================================

// Started reports whether the opening greeting has been delivered.
func (c *Conversation) Started() bool { return c.started }

// MarkStarted records that the session has begun.
func (c *Conversation) MarkStarted() { c.started = true }

// Loading reports whether a request is in flight.
func (c *Conversation) Loading() bool { return c.loading }

// SetLoading sets the in-flight flag.
func (c *Conversation) SetLoading(v bool) { c.loading = v }

// Reset discards every message and returns to the not-started, idle state.
// The conversation receives a fresh ID so an archived copy of the old
// transcript is never overwritten by the new one.
func (c *Conversation) Reset() {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.messages = make([]Message, 0, 16)
	c.started = false
	c.loading = false
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is a read-only view of a Conversation at one instant.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Messages  []Message
	Started   bool
	Loading   bool
}

// Snapshot copies the conversation state.
func (c *Conversation) Snapshot() Snapshot {
	return Snapshot{
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		Messages:  c.Messages(),
		Started:   c.started,
		Loading:   c.loading,
	}
}

// Len returns the number of messages in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Messages)
}

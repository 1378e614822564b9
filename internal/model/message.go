// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/grace-tui/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// ParseRole converts a stored role name back into a Role.
// "assistant" is accepted for transcripts written by other tools.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "user":
		return RoleUser, true
	case "model", "assistant":
		return RoleModel, true
	default:
		return "", false
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single turn of the transcript.
// Messages are values; once appended to a Conversation they are never edited.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return NewMessageAt(role, content, time.Now())
}

// NewMessageAt creates a message with an explicit timestamp.
func NewMessageAt(role Role, content string, ts time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
	}
}

// NewUserMessage creates a message authored by the user.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewModelMessage creates a message authored by the model.
func NewModelMessage(content string) Message {
	return NewMessage(RoleModel, content)
}

// IsUser reports whether the message was written by the user.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// Preview returns the content on one line, truncated to maxLen runes.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(util.Flatten(m.Content), maxLen)
}

// Clock returns the local wall-clock time of the message as HH:MM.
func (m Message) Clock() string {
	return m.Timestamp.Local().Format("15:04")
}

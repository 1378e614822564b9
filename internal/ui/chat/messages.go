// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/model"
)

// StartedMsg reports the outcome of Controller.Start.
type StartedMsg struct {
	Err error
}

// ReplyMsg delivers the reply to a sent message. Reply is nil when the
// session was reset while the request was in flight.
type ReplyMsg struct {
	Reply *model.Message
}

// EndedMsg reports the outcome of Controller.End.
type EndedMsg struct {
	Reply *model.Message
	Err   error
}

// SavedMsg reports an archive write.
type SavedMsg struct {
	ID   string
	Auto bool
	Err  error
}

// PersonaMsg replaces the persona, typically after the config file changed.
// A running session keeps its persona until reset.
type PersonaMsg struct {
	Persona counsel.Persona
	Err     error
}

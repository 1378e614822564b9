// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: one immutable turn of the transcript (user or model)
//   - Conversation: the ordered, append-only transcript plus started/loading flags
//   - Snapshot: a read-only copy of a Conversation handed to renderers
//   - Role: message author (user, model)
//
// Conversation is not safe for concurrent use; its owner serializes access.
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("I feel anxious"))
//	for _, msg := range conv.Snapshot().Messages {
//	    fmt.Println(msg.Role, msg.Content)
//	}
package model

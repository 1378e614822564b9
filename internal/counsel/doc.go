// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package counsel implements the conversation controller behind every grace
// front end.
//
// A Controller owns the transcript, the started/loading flags and the hidden
// chat history sent to the model. Front ends only see copies (Snapshot) and
// drive it with Start, Send (or Begin + Complete), End and Reset.
//
// # Request lifecycle
//
//	Begin(text)        user message appended, loading = true
//	Exchange.Complete  candidate models tried in order, one reply appended,
//	                   loading = false
//
// A turn whose every candidate model fails appends the persona's apology.
// Remote failures are never returned to the caller of Send; they live in the
// transcript like any other reply.
//
// # Concurrency
//
// All methods are safe for concurrent use. Only one request may be in flight;
// a second Send while loading returns ErrBusy. A reply that arrives after
// Reset is dropped.
package counsel

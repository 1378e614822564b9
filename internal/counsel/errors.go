// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package counsel

import "errors"

var (
	// ErrEmptyInput is returned when the text to send is blank.
	ErrEmptyInput = errors.New("message is empty")

	// ErrBusy is returned when a request is already in flight.
	ErrBusy = errors.New("a reply is still on its way")

	// ErrNotStarted is returned by Send and End before Start succeeded.
	ErrNotStarted = errors.New("session has not started")

	// ErrAlreadyStarted is returned by Start on a started session.
	ErrAlreadyStarted = errors.New("session already started")

	// ErrNotConfigured is returned by Start when no API key is available.
	ErrNotConfigured = errors.New("cannot start session: API key not configured")

	// ErrStartFailed is returned by Start when no candidate model answered.
	ErrStartFailed = errors.New("cannot start session: no model answered")

	// ErrExhausted wraps the last failure after every candidate model failed.
	ErrExhausted = errors.New("all candidate models failed")

	// ErrDiscarded is returned when the session was reset while the request
	// was in flight. The reply is dropped.
	ErrDiscarded = errors.New("session was reset; reply discarded")
)

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen Bubble Tea counseling view.
//
// The model is a thin presentation layer over a counsel.Controller: every
// frame is drawn from the controller's snapshot, and every network call runs
// as a tea.Cmd off the UI goroutine.
//
// # Screens
//
//   - Welcome: shown while no session is running. Enter starts one.
//   - Chat: header, transcript viewport, "Listening..." indicator, input line.
//
// # Key Bindings
//
//   - Enter: start session / send message
//   - Ctrl+E: end session (closing prayer)
//   - Ctrl+R: reset to the welcome screen
//   - Ctrl+S: save the transcript to the archive
//   - PgUp/PgDn: scroll the transcript
//   - Ctrl+C: quit
package chat

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the command handlers for grace.
//
// # Commands
//
//   - (none), tui: full-screen counseling session
//   - chat: line-based session with slash commands
//   - ask: one message, one reply, then exit
//   - history: list, search, show, delete and export saved transcripts
//   - config: show, init and edit the configuration file
//   - version, help
//
// # Usage
//
//	os.Exit(cli.Run(context.Background(), os.Args[1:], cli.StdStreams()))
//
// Run returns ExitConfigError (1) when configuration is missing or invalid.
// Remote failures never change the exit status: they surface as the
// persona's apology.
package cli

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across grace.
//
// # Key Functions
//
// Text:
//   - NormalizeInput: trims and NFC-normalizes user text before it enters a transcript
//   - IsBlank: reports whether text is empty after trimming
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width aware truncation (CJK, emoji)
//   - Flatten: collapses a multi-line string onto one line
//
// Files:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	text := util.NormalizeInput(raw)
//	if util.IsBlank(text) {
//	    return
//	}
//	summary := util.TruncateRunes(util.Flatten(text), 50)
package util

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes archived transcripts to shareable files.
//
// # Formats
//
//   - Markdown (.md): readable transcript with optional front matter
//   - JSON (.json): the complete transcript, suitable for re-import
//
// # Usage
//
//	exp, err := export.ForFormat("md", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(transcript, exp, &export.Options{OutputDir: "."})
package export

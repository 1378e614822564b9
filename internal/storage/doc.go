// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage archives finished and in-progress transcripts in SQLite.
//
// The database lives at ~/.grace/transcripts.db by default and uses the
// pure-Go modernc.org/sqlite driver, so no cgo toolchain is needed.
//
// # Schema
//
//	transcripts(id, persona, model_list, created_at, updated_at, summary)
//	messages(transcript_id, seq, id, role, content, timestamp)
//
// Saving an existing transcript replaces its messages; created_at is kept.
//
// # Usage
//
//	store, err := storage.Open(path)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.Save(ctx, storage.FromSnapshot(ctrl.Snapshot(), "Grace", models))
package storage

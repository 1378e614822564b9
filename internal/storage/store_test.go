// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/grace-tui/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "transcripts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTranscript() *Transcript {
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	return &Transcript{
		Persona: "Grace",
		Models:  []string{"m1", "m2"},
		Messages: []model.Message{
			model.NewMessageAt(model.RoleModel, "Hello! Let's pray.", base),
			model.NewMessageAt(model.RoleUser, "I feel anxious\nabout work", base.Add(time.Minute)),
			model.NewMessageAt(model.RoleModel, "That makes sense.", base.Add(2*time.Minute)),
		},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript()
	require.NoError(t, s.Save(ctx, tr))
	require.NotEmpty(t, tr.ID)
	assert.Equal(t, "I feel anxious about work", tr.Summary)
	assert.False(t, tr.CreatedAt.IsZero())

	got, err := s.Load(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, "Grace", got.Persona)
	assert.Equal(t, []string{"m1", "m2"}, got.Models)
	require.Len(t, got.Messages, 3)
	for i := range tr.Messages {
		assert.Equal(t, tr.Messages[i].ID, got.Messages[i].ID)
		assert.Equal(t, tr.Messages[i].Role, got.Messages[i].Role)
		assert.Equal(t, tr.Messages[i].Content, got.Messages[i].Content)
		assert.True(t, tr.Messages[i].Timestamp.Equal(got.Messages[i].Timestamp))
	}
}

func TestStore_SaveUpsertReplacesMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript()
	require.NoError(t, s.Save(ctx, tr))
	created := tr.CreatedAt

	tr.Messages = append(tr.Messages, model.NewUserMessage("one more"))
	require.NoError(t, s.Save(ctx, tr))

	got, err := s.Load(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 4)
	assert.True(t, created.Equal(got.CreatedAt))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_LoadUnknown(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	_, err = s.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestStore_LoadByPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript()
	tr.ID = "abcd1234-0000"
	require.NoError(t, s.Save(ctx, tr))

	got, err := s.Load(ctx, "abcd1")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234-0000", got.ID)

	_, err = s.Load(ctx, "abc")
	assert.ErrorIs(t, err, ErrTranscriptNotFound)

	other := sampleTranscript()
	other.ID = "abcd9999-0000"
	require.NoError(t, s.Save(ctx, other))
	_, err = s.Load(ctx, "abcd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestStore_ListOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	var ids []string
	for i := 0; i < 3; i++ {
		tr := sampleTranscript()
		require.NoError(t, s.Save(ctx, tr))
		ids = append(ids, tr.ID)
	}

	metas, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, metas, 3)
	assert.Equal(t, ids[2], metas[0].ID)
	assert.Equal(t, ids[0], metas[2].ID)
	assert.Equal(t, 3, metas[0].MessageCount)

	metas, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, metas, 2)
}

func TestStore_Search(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleTranscript()
	require.NoError(t, s.Save(ctx, a))

	b := &Transcript{Persona: "Grace", Messages: []model.Message{
		model.NewUserMessage("grief over my dog"),
		model.NewModelMessage("I'm so sorry, 100% of that pain is real"),
	}}
	require.NoError(t, s.Save(ctx, b))

	metas, err := s.Search(ctx, "ANXIOUS", 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, a.ID, metas[0].ID)

	metas, err = s.Search(ctx, "100%", 0)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, b.ID, metas[0].ID)

	metas, err = s.Search(ctx, "nothing like this", 0)
	require.NoError(t, err)
	assert.Empty(t, metas)

	metas, err = s.Search(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Len(t, metas, 2)
}

func TestStore_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript()
	require.NoError(t, s.Save(ctx, tr))
	require.NoError(t, s.Delete(ctx, tr.ID))

	_, err := s.Load(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
	assert.ErrorIs(t, s.Delete(ctx, tr.ID), ErrTranscriptNotFound)

	var orphans int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.db")
	s, err := Open(path)
	require.NoError(t, err)
	tr := sampleTranscript()
	require.NoError(t, s.Save(context.Background(), tr))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
	assert.Equal(t, path, s.Path())
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save(context.Background(), sampleTranscript()))
	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, DefaultSummary, Summarize(nil))
	assert.Equal(t, DefaultSummary, Summarize([]model.Message{model.NewModelMessage("hi")}))

	long := strings.Repeat("word ", 30)
	s := Summarize([]model.Message{model.NewUserMessage(long)})
	assert.Equal(t, SummaryLength, len([]rune(s)))
	assert.True(t, strings.HasSuffix(s, "..."))
}

func TestFromSnapshot(t *testing.T) {
	conv := model.NewConversation()
	conv.Append(model.NewModelMessage("hello"))
	conv.Append(model.NewUserMessage("help me"))

	tr := FromSnapshot(conv.Snapshot(), "Grace", []string{"m"})
	assert.Equal(t, conv.ID, tr.ID)
	assert.Equal(t, "help me", tr.Summary)
	assert.Equal(t, 2, tr.MessageCount())
	assert.Equal(t, tr.ID, tr.Meta().ID)
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "No saved conversations.", FormatList(nil))

	out := FormatList([]TranscriptMeta{{
		ID:           "0123456789abcdef",
		Summary:      "I feel anxious",
		UpdatedAt:    time.Date(2025, 5, 1, 10, 0, 0, 0, time.Local),
		MessageCount: 3,
	}})
	assert.Contains(t, out, "01234567 ")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "2025-05-01 10:00")
	assert.Contains(t, out, "I feel anxious")
}

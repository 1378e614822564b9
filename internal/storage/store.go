// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/grace-tui/internal/model"
)

// ErrTranscriptNotFound is returned for unknown transcript IDs.
var ErrTranscriptNotFound = errors.New("transcript not found")

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	persona    TEXT NOT NULL DEFAULT '',
	model_list TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	summary    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	transcript_id TEXT NOT NULL REFERENCES transcripts(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	id            TEXT NOT NULL,
	role          TEXT NOT NULL,
	content       TEXT NOT NULL,
	timestamp     INTEGER NOT NULL,
	PRIMARY KEY (transcript_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at DESC);
`

// Store is the SQLite transcript archive. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open opens (creating if needed) the archive at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps :memory: databases
	// alive across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or updates t and replaces its messages. Missing ID, summary
// and creation time are filled in on t; UpdatedAt is always set to now.
func (s *Store) Save(ctx context.Context, t *Transcript) error {
	if t == nil {
		return fmt.Errorf("nil transcript")
	}
	now := s.now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Summary == "" {
		t.Summary = Summarize(t.Messages)
	}
	t.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transcripts (id, persona, model_list, created_at, updated_at, summary)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			persona = excluded.persona,
			model_list = excluded.model_list,
			updated_at = excluded.updated_at,
			summary = excluded.summary
	`, t.ID, t.Persona, strings.Join(t.Models, ","), t.CreatedAt.UnixNano(), t.UpdatedAt.UnixNano(), t.Summary)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE transcript_id = ?", t.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (transcript_id, seq, id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for i, m := range t.Messages {
		if _, err := stmt.ExecContext(ctx, t.ID, i, m.ID, string(m.Role), m.Content, m.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("save message %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the transcript with the given ID. A unique ID prefix of at
// least four characters is also accepted.
func (s *Store) Load(ctx context.Context, id string) (*Transcript, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	t := &Transcript{ID: fullID}
	var models string
	var created, updated int64
	err = s.db.QueryRowContext(ctx,
		"SELECT persona, model_list, created_at, updated_at, summary FROM transcripts WHERE id = ?", fullID,
	).Scan(&t.Persona, &models, &created, &updated, &t.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTranscriptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	t.CreatedAt = time.Unix(0, created)
	t.UpdatedAt = time.Unix(0, updated)
	if models != "" {
		t.Models = strings.Split(models, ",")
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, content, timestamp FROM messages WHERE transcript_id = ? ORDER BY seq", fullID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Message
		var role string
		var ts int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.Timestamp = time.Unix(0, ts)
		t.Messages = append(t.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return t, nil
}

// resolveID expands an ID prefix to the full ID.
func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrTranscriptNotFound
	}

	var exact string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM transcripts WHERE id = ?", id).Scan(&exact)
	if err == nil {
		return exact, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup transcript: %w", err)
	}
	if len(id) < 4 {
		return "", ErrTranscriptNotFound
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM transcripts WHERE id LIKE ? ESCAPE '\\' LIMIT 2", escapeLike(id)+"%")
	if err != nil {
		return "", fmt.Errorf("lookup transcript: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", err
		}
		matches = append(matches, m)
	}
	switch len(matches) {
	case 1:
		return matches[0], rows.Err()
	case 0:
		return "", ErrTranscriptNotFound
	default:
		return "", fmt.Errorf("ambiguous transcript id %q", id)
	}
}

// List returns up to limit transcripts, most recently updated first.
// A limit of zero or less returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]TranscriptMeta, error) {
	return s.queryMetas(ctx, "", nil, limit)
}

// Search returns transcripts whose summary or any message contains query
// (case-insensitive for ASCII), most recent first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]TranscriptMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx, limit)
	}
	pattern := "%" + escapeLike(query) + "%"
	where := `WHERE t.summary LIKE ? ESCAPE '\' OR EXISTS (
		SELECT 1 FROM messages m WHERE m.transcript_id = t.id AND m.content LIKE ? ESCAPE '\')`
	return s.queryMetas(ctx, where, []any{pattern, pattern}, limit)
}

func (s *Store) queryMetas(ctx context.Context, where string, args []any, limit int) ([]TranscriptMeta, error) {
	q := `SELECT t.id, t.persona, t.summary, t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM messages m WHERE m.transcript_id = t.id)
		FROM transcripts t ` + where + ` ORDER BY t.updated_at DESC`
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []TranscriptMeta
	for rows.Next() {
		var m TranscriptMeta
		var created, updated int64
		if err := rows.Scan(&m.ID, &m.Persona, &m.Summary, &created, &updated, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		m.CreatedAt = time.Unix(0, created)
		m.UpdatedAt = time.Unix(0, updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Delete removes a transcript and its messages.
func (s *Store) Delete(ctx context.Context, id string) error {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", fullID)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTranscriptNotFound
	}
	return nil
}

// Count returns the number of archived transcripts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transcripts").Scan(&n)
	return n, err
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/grace-tui/internal/export"
	"github.com/jeranaias/grace-tui/internal/storage"
)

const (
	historyUsage       = `grace history [list|search|show|export|delete] ...`
	historyDefaultList = 20
)

// HandleHistory browses the transcript archive. With no subcommand it
// lists the most recent conversations.
func HandleHistory(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Rest, "yes", "y", "open", "no-metadata")

	store, err := env.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sub := strings.ToLower(p.Subcommand())
	switch sub {
	case "", "list", "ls":
		return historyList(ctx, env, store, p)
	case "search", "find":
		return historySearch(ctx, env, store, p)
	case "show", "view":
		return historyShow(ctx, env, store, p)
	case "export":
		return historyExport(ctx, env, store, p)
	case "delete", "rm":
		return historyDelete(ctx, env, store, p)
	}
	return &UsageError{Reason: fmt.Sprintf("unknown history subcommand %q", sub), Usage: historyUsage}
}

func historyList(ctx context.Context, env *Env, store *storage.Store, p *ArgParser) error {
	limit, err := p.FlagInt("limit", historyDefaultList)
	if err != nil {
		return &UsageError{Reason: err.Error()}
	}
	metas, err := store.List(ctx, limit)
	if err != nil {
		return &CommandError{Command: "history", Action: "list", Err: err}
	}
	fmt.Fprint(env.Out, storage.FormatList(metas))
	if len(metas) == 0 {
		fmt.Fprintln(env.Out)
	}
	return nil
}

func historySearch(ctx context.Context, env *Env, store *storage.Store, p *ArgParser) error {
	query := JoinPositionalArgs(p, 1)
	if strings.TrimSpace(query) == "" {
		return ErrMissingArgument("text", "grace history search <text> [--limit N]")
	}
	limit, err := p.FlagInt("limit", historyDefaultList)
	if err != nil {
		return &UsageError{Reason: err.Error()}
	}
	metas, err := store.Search(ctx, query, limit)
	if err != nil {
		return &CommandError{Command: "history", Action: "search", Err: err}
	}
	fmt.Fprint(env.Out, storage.FormatList(metas))
	if len(metas) == 0 {
		fmt.Fprintln(env.Out)
	}
	return nil
}

// loadTranscript resolves an ID or unique prefix from the second positional.
func loadTranscript(ctx context.Context, store *storage.Store, p *ArgParser, usage string) (*storage.Transcript, error) {
	id := p.Positional(1)
	if id == "" {
		return nil, ErrMissingArgument("id", usage)
	}
	t, err := store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrTranscriptNotFound) {
			return nil, fmt.Errorf("no conversation matches %q", id)
		}
		return nil, err
	}
	return t, nil
}

func historyShow(ctx context.Context, env *Env, store *storage.Store, p *ArgParser) error {
	t, err := loadTranscript(ctx, store, p, "grace history show <id>")
	if err != nil {
		return err
	}

	fmt.Fprintln(env.Out, TitleStyle.Render(t.Summary))
	fmt.Fprintln(env.Out, field("ID", t.ID))
	fmt.Fprintln(env.Out, field("With", t.Persona))
	fmt.Fprintln(env.Out, field("Started", t.CreatedAt.Local().Format("2006-01-02 15:04")))
	fmt.Fprintln(env.Out, field("Messages", fmt.Sprint(t.MessageCount())))
	fmt.Fprintln(env.Out)

	r := newRenderer(env, t.Persona)
	for i := range t.Messages {
		r.Print(&t.Messages[i])
	}
	return nil
}

func historyExport(ctx context.Context, env *Env, store *storage.Store, p *ArgParser) error {
	usage := "grace history export <id> [--format md|json] [--out DIR] [--open]"
	t, err := loadTranscript(ctx, store, p, usage)
	if err != nil {
		return err
	}

	opts := export.DefaultOptions()
	opts.OutputDir = p.FlagOrDefault("out", ".")
	opts.OpenAfterExport = p.BoolFlag("open")
	opts.IncludeMetadata = !p.BoolFlag("no-metadata")

	format := p.FlagOrDefault("format", "md")
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		return ErrUnsupportedFormat(format, export.Formats)
	}
	path, err := export.ExportToFile(t, exporter, opts)
	if err != nil {
		return &CommandError{Command: "history", Action: "export", Err: err}
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render("Exported to "+path))
	return nil
}

func historyDelete(ctx context.Context, env *Env, store *storage.Store, p *ArgParser) error {
	t, err := loadTranscript(ctx, store, p, "grace history delete <id> [--yes]")
	if err != nil {
		return err
	}

	if !p.BoolFlag("yes", "y") {
		if !isTerminal(env.In) {
			return &UsageError{Reason: "refusing to delete without confirmation; pass --yes"}
		}
		question := fmt.Sprintf("Delete %q (%s)?", t.Summary, shortID(t.ID))
		if !PromptYesNo(env.In, env.Out, question) {
			fmt.Fprintln(env.Out, "Cancelled.")
			return nil
		}
	}

	if err := store.Delete(ctx, t.ID); err != nil {
		return &CommandError{Command: "history", Action: "delete", Err: err}
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render("Deleted conversation "+shortID(t.ID)))
	return nil
}

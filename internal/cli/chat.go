// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/grace-tui/internal/config"
	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/export"
	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/storage"
)

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader reads one line of user input per call. io.EOF and
// liner.ErrPromptAborted end the session.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads history from historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with arrow-key history and line editing.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory writes input history with 0600 permissions; it may contain
// personal disclosures.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// scanReader reads lines from a pipe or file. Prompts are not echoed.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(in io.Reader) *scanReader {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 4096), maxStdinMessage)
	return &scanReader{scanner: s}
}

func (s *scanReader) ReadInput(string) (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) Close() {}

// newLineReader uses liner on a terminal and a plain scanner otherwise.
func newLineReader(env *Env) lineReader {
	if !isTerminal(env.In) {
		return newScanReader(env.In)
	}
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewChatCLI(filepath.Join(dir, "chat_history"))
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for an interactive chat session.
type ChatSession struct {
	env       *Env
	ctrl      *counsel.Controller
	store     *storage.Store
	autosave  bool
	out       *renderer
	// interrupt scopes each request so Ctrl+C cancels only the reply in
	// flight. Tests replace it.
	interrupt func(context.Context) (context.Context, context.CancelFunc)
}

// HandleChat runs the line-based session until /quit or end of input.
// The transcript is autosaved on exit when enabled.
func HandleChat(ctx context.Context, env *Env) error {
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	ctrl, err := env.Controller()
	if err != nil {
		return err
	}

	session := &ChatSession{
		env:       env,
		ctrl:      ctrl,
		autosave:  cfg.Storage.Autosave,
		out:       newRenderer(env, ctrl.Persona().Name),
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}
	store, err := env.OpenStore()
	if err != nil {
		env.Logger.Warn("chat: archive unavailable", "error", err)
		fmt.Fprintf(env.Err, "%s %v (saving disabled)\n", WarningStyle.Render("[!]"), err)
	} else {
		session.store = store
		defer store.Close()
	}

	input := newLineReader(env)
	defer input.Close()

	return session.run(ctx, input)
}

// run drives the read-eval loop.
func (s *ChatSession) run(ctx context.Context, input lineReader) error {
	persona := s.ctrl.Persona()
	fmt.Fprintln(s.env.Out, TitleStyle.Render(persona.Name+" Counseling"))
	if persona.Tagline != "" {
		fmt.Fprintln(s.env.Out, DimStyle.Render(persona.Tagline))
	}
	fmt.Fprintln(s.env.Out, DimStyle.Render("Type /help for commands, /quit to leave."))
	fmt.Fprintln(s.env.Out)

	s.start(ctx)

	for {
		line, err := input.ReadInput(YouStyle.Render("> "))
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, liner.ErrPromptAborted) {
				s.env.Logger.Warn("chat: input error", "error", err)
			}
			fmt.Fprintln(s.env.Out)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.command(ctx, line); quit {
				break
			}
			continue
		}
		s.send(ctx, line)
	}

	s.save(ctx, true)
	fmt.Fprintln(s.env.Out, DimStyle.Render("Go in peace."))
	return nil
}

// command runs a slash command and reports whether the session should end.
func (s *ChatSession) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	rest := fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true
	case "/help", "/h", "/?":
		s.printHelp()
	case "/start":
		s.start(ctx)
	case "/end":
		s.end(ctx)
	case "/reset", "/clear":
		s.save(ctx, true)
		s.ctrl.Reset()
		fmt.Fprintln(s.env.Out, DimStyle.Render("Conversation cleared. Type /start to begin again."))
	case "/save":
		s.save(ctx, false)
	case "/export":
		s.exportCurrent(rest)
	default:
		s.notice(fmt.Errorf("unknown command %s (try /help)", name))
	}
	return false
}

// start opens the session and prints the greeting. A missing key or a
// failed greeting is reported and the loop keeps running.
func (s *ChatSession) start(ctx context.Context) {
	reqCtx, stop := s.interrupt(ctx)
	defer stop()

	err := s.ctrl.Start(reqCtx)
	switch {
	case err == nil:
		msgs := s.ctrl.Messages()
		s.out.Print(&msgs[len(msgs)-1])
	case errors.Is(err, counsel.ErrAlreadyStarted):
		fmt.Fprintln(s.env.Out, DimStyle.Render("The session is already open."))
	case errors.Is(err, counsel.ErrNotConfigured):
		s.notice(err)
		fmt.Fprintln(s.env.Out, DimStyle.Render("Set GRACE_API_KEY or run `grace config set-key`."))
	default:
		s.env.Logger.Warn("chat: start failed", "error", err)
		s.out.Print(&model.Message{Role: model.RoleModel, Content: s.ctrl.Persona().Apology, Timestamp: time.Now()})
	}
}

// send delivers one user message and prints the reply.
func (s *ChatSession) send(ctx context.Context, text string) {
	reqCtx, stop := s.interrupt(ctx)
	defer stop()

	reply, err := s.ctrl.Send(reqCtx, text)
	switch {
	case err == nil:
		fmt.Fprintln(s.env.Out)
		s.out.Print(reply)
	case errors.Is(err, counsel.ErrNotStarted):
		fmt.Fprintln(s.env.Out, DimStyle.Render("The session has not started. Type /start."))
	default:
		s.notice(err)
	}
}

// end asks the counselor to close the conversation.
func (s *ChatSession) end(ctx context.Context) {
	reqCtx, stop := s.interrupt(ctx)
	defer stop()

	reply, err := s.ctrl.End(reqCtx)
	if err != nil {
		s.notice(err)
		return
	}
	s.out.Print(reply)
}

// transcript converts the current conversation for archiving.
func (s *ChatSession) transcript() *storage.Transcript {
	p := s.ctrl.Persona()
	return storage.FromSnapshot(s.ctrl.Snapshot(), p.Name, p.Models)
}

// save archives the transcript. Autosaves are silent and skipped until the
// user has said something.
func (s *ChatSession) save(ctx context.Context, auto bool) {
	if s.store == nil {
		if !auto {
			s.notice(errors.New("no transcript archive is available"))
		}
		return
	}
	t := s.transcript()
	if auto && (!s.autosave || !hasUserMessage(t.Messages)) {
		return
	}

	saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.store.Save(saveCtx, t); err != nil {
		s.env.Logger.Error("chat: save failed", "error", err)
		s.notice(fmt.Errorf("save failed: %w", err))
		return
	}
	if !auto {
		fmt.Fprintln(s.env.Out, SuccessStyle.Render("Saved conversation "+shortID(t.ID)))
	}
}

// exportCurrent writes the live transcript: /export [md|json] [dir].
func (s *ChatSession) exportCurrent(args []string) {
	format, dir := "md", "."
	if len(args) > 0 {
		format = args[0]
	}
	if len(args) > 1 {
		dir = args[1]
	}

	opts := export.DefaultOptions()
	opts.OutputDir = dir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		s.notice(err)
		return
	}
	path, err := export.ExportToFile(s.transcript(), exporter, opts)
	if err != nil {
		s.notice(err)
		return
	}
	fmt.Fprintln(s.env.Out, SuccessStyle.Render("Exported to "+path))
}

func (s *ChatSession) notice(err error) {
	fmt.Fprintf(s.env.Out, "%s %v\n", ErrorStyle.Render("[X]"), err)
}

func (s *ChatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/start", "Open the session"},
		{"/end", "Ask the counselor to close the conversation"},
		{"/reset, /clear", "Discard the conversation"},
		{"/save", "Save the conversation"},
		{"/export [md|json] [dir]", "Export the conversation to a file"},
		{"/help, /h", "Show this help"},
		{"/quit, /q", "Leave"},
	}
	fmt.Fprintln(s.env.Out)
	for _, c := range commands {
		fmt.Fprintf(s.env.Out, "  %-26s %s\n", c.cmd, DimStyle.Render(c.desc))
	}
	fmt.Fprintln(s.env.Out)
	fmt.Fprintln(s.env.Out, DimStyle.Render("Ctrl+C cancels a reply in progress, Ctrl+D leaves."))
	fmt.Fprintln(s.env.Out)
}

// =============================================================================
// HELPERS
// =============================================================================

func hasUserMessage(msgs []model.Message) bool {
	for _, m := range msgs {
		if m.IsUser() {
			return true
		}
	}
	return false
}

// shortID returns the first 8 characters of an ID.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

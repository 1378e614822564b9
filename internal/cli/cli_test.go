// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		argv   []string
		cmd    Command
		rest   []string
		config string
		theme  string
	}{
		{name: "no args opens tui", argv: nil, cmd: CmdTUI},
		{name: "tui", argv: []string{"tui"}, cmd: CmdTUI, rest: []string{}},
		{name: "ask", argv: []string{"ask", "I", "feel", "anxious"}, cmd: CmdAsk, rest: []string{"I", "feel", "anxious"}},
		{name: "chat alias", argv: []string{"repl"}, cmd: CmdChat, rest: []string{}},
		{name: "history alias", argv: []string{"transcripts", "list"}, cmd: CmdHistory, rest: []string{"list"}},
		{name: "config before command", argv: []string{"--config", "/tmp/g.toml", "chat"}, cmd: CmdChat, rest: []string{}, config: "/tmp/g.toml"},
		{name: "theme with equals after command", argv: []string{"history", "--theme=dark", "list"}, cmd: CmdHistory, rest: []string{"list"}, theme: "dark"},
		{name: "double dash protects flags", argv: []string{"ask", "--", "--config", "x"}, cmd: CmdAsk, rest: []string{"--", "--config", "x"}},
		{name: "help flag", argv: []string{"--help"}, cmd: CmdHelp},
		{name: "version flag", argv: []string{"-v"}, cmd: CmdVersion},
		{name: "help word", argv: []string{"help"}, cmd: CmdHelp, rest: []string{}},
		{name: "unknown", argv: []string{"hisotry"}, cmd: CmdUnknown, rest: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.cmd, cmd)
			if tt.rest != nil {
				assert.Equal(t, tt.rest, args.Rest)
			}
			assert.Equal(t, tt.config, args.ConfigPath)
			assert.Equal(t, tt.theme, args.Theme)
		})
	}
}

func TestParse_UnknownKeepsName(t *testing.T) {
	cmd, args := Parse([]string{"--no-markdown", "frobnicate"})
	assert.Equal(t, CmdUnknown, cmd)
	assert.Equal(t, "frobnicate", args.Name)
	assert.True(t, args.NoMarkdown)
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"export", "3f2a", "--format=json", "--open", "out", "--limit", "5"}, "open")

	assert.Equal(t, "export", p.Subcommand())
	assert.Equal(t, "3f2a", p.Positional(1))
	assert.Equal(t, "out", p.Positional(2))
	assert.Equal(t, "", p.Positional(9))
	assert.Equal(t, 3, p.PositionalCount())
	assert.Equal(t, "json", p.Flag("format"))
	assert.True(t, p.BoolFlag("open"))
	assert.False(t, p.BoolFlag("yes"))

	n, err := p.FlagInt("limit", 20)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = p.FlagInt("missing", 20)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	assert.Equal(t, "md", p.FlagOrDefault("style", "md"))
}

func TestArgParser_BoolFlagDoesNotEatText(t *testing.T) {
	p := NewArgParser([]string{"--show-greeting", "hello", "there"}, "show-greeting")
	assert.True(t, p.BoolFlag("show-greeting"))
	assert.Equal(t, "hello there", JoinPositionalArgs(p, 0))
}

func TestArgParser_DoubleDash(t *testing.T) {
	p := NewArgParser([]string{"--", "--not-a-flag", "-x"})
	assert.Equal(t, []string{"--not-a-flag", "-x"}, p.PositionalFrom(0))
	assert.False(t, p.BoolFlag("not-a-flag"))
}

func TestArgParser_FlagIntRejectsBadValues(t *testing.T) {
	for _, v := range []string{"abc", "0", "-3"} {
		p := NewArgParser([]string{"--limit=" + v})
		_, err := p.FlagInt("limit", 20)
		assert.Error(t, err, v)
	}
}

func TestSuggestCommand(t *testing.T) {
	tests := map[string]string{
		"hisotry": "history",
		"chta":    "chat",
		"confg":   "config",
		"ak":      "ask",
		"ask":     "",
		"x":       "",
		"zzzzzzz": "",
	}
	for input, want := range tests {
		assert.Equal(t, want, SuggestCommand(input), input)
	}
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("chat", "chat"))
	assert.Equal(t, 3, levenshteinDistance("", "ask"))
	assert.Equal(t, 1, levenshteinDistance("chat", "cat"))
	assert.Equal(t, 3, levenshteinDistance("kitten", "sitting"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitConfigError, ExitCode(&ConfigError{Err: errors.New("bad")}))
	assert.Equal(t, ExitUsageError, ExitCode(ErrMissingArgument("id", "grace history show <id>")))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("disk full")))
	assert.Equal(t, ExitGeneralError, ExitCode(&CommandError{Command: "history", Action: "list", Err: errors.New("x")}))
}

func TestDisplayError_PrintsUsage(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, ErrMissingArgument("id", "grace history show <id>"))
	out := buf.String()
	assert.Contains(t, out, "missing required argument: id")
	assert.Contains(t, out, "Usage: grace history show <id>")
}

func TestPrintUsageAndVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	assert.Contains(t, buf.String(), "grace ask")
	assert.Contains(t, buf.String(), "GRACE_API_KEY")

	buf.Reset()
	PrintVersion(&buf)
	assert.True(t, strings.HasPrefix(buf.String(), "grace "+Version))
}

func TestPromptYesNo(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, PromptYesNo(strings.NewReader("y\n"), &out, "Delete?"))
	assert.True(t, PromptYesNo(strings.NewReader("YES\n"), &out, "Delete?"))
	assert.False(t, PromptYesNo(strings.NewReader("n\n"), &out, "Delete?"))
	assert.False(t, PromptYesNo(strings.NewReader(""), &out, "Delete?"))
	assert.Contains(t, out.String(), "Delete? [y/N]: ")
}

func TestReadSecret_NonTerminal(t *testing.T) {
	var out bytes.Buffer
	got, err := ReadSecret(strings.NewReader("abc123\n"), &out, "Key: ")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got)

	_, err = ReadSecret(strings.NewReader(""), &out, "Key: ")
	assert.ErrorIs(t, err, errNoInput)
}

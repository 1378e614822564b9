// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdHistory:
		return "history"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// Args holds the global flags and the arguments left for the command.
type Args struct {
	// ConfigPath overrides the config file location (--config).
	ConfigPath string
	// Theme overrides ui.theme for this run (--theme).
	Theme string
	// NoMarkdown prints replies as plain text (--no-markdown).
	NoMarkdown bool
	// Name is the command word as typed; set for CmdUnknown.
	Name string
	// Rest are the arguments after the command word.
	Rest []string
}

const usageText = `grace - a gentle counselor in your terminal

USAGE:
  grace [global flags] [command] [arguments]

COMMANDS:
  (none), tui              Open the full-screen counseling session
  chat                     Line-based session with slash commands
  ask <message>            Send one message and print the reply
  history [subcommand]     Browse saved conversations
  config [subcommand]      Show or edit the configuration
  version                  Print version information
  help                     Show this help

GLOBAL FLAGS:
  --config <path>          Config file (default ~/.grace/config.toml, or $GRACE_CONFIG)
  --theme <mode>           dark, light or auto
  --no-markdown            Print replies as plain text
  -h, --help               Show this help
  -v, --version            Print version information

ASK:
  grace ask "I feel anxious about work"
  echo "I can't sleep" | grace ask
  grace ask --show-greeting "Hello"

CHAT COMMANDS:
  /start  /end  /reset  /save  /export [md|json] [dir]  /help  /quit

HISTORY:
  grace history [list] [--limit N]
  grace history search <text> [--limit N]
  grace history show <id>
  grace history export <id> [--format md|json] [--out DIR] [--open]
  grace history delete <id> [--yes]

CONFIG:
  grace config show | path | keys | models
  grace config init [--force]
  grace config get <key>
  grace config set <key> <value>
  grace config set-key

ENVIRONMENT:
  GRACE_API_KEY, GEMINI_API_KEY, VITE_API_KEY, NEXT_PUBLIC_API_KEY, API_KEY
                           API key (first one set wins)
  GRACE_MODELS             Comma-separated candidate models, tried in order
  GRACE_CONFIG             Config file path
  GRACE_DB, GRACE_LOG_LEVEL, GRACE_THEME, GRACE_BASE_URL
  NO_COLOR, FORCE_COLOR    Color output control
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, usageText)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "grace %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Parse splits argv (without the program name) into a command and its
// arguments. Global flags may appear anywhere before "--".
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) > 0 {
		switch remaining[0] {
		case "-h", "--help":
			return CmdHelp, args
		case "-v", "--version":
			return CmdVersion, args
		}
	}

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	name := remaining[0]
	args.Name = name
	args.Rest = remaining[1:]

	switch strings.ToLower(name) {
	case "tui":
		return CmdTUI, args
	case "chat", "repl":
		return CmdChat, args
	case "ask":
		return CmdAsk, args
	case "history", "transcripts":
		return CmdHistory, args
	case "config":
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	}
	return CmdUnknown, args
}

// parseGlobalFlags removes the global flags from argv. Everything after
// "--" is left untouched.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	remaining := make([]string, 0, len(argv))

	for i := 0; i < len(argv); i++ {
		a := argv[i]
		if a == "--" {
			remaining = append(remaining, argv[i:]...)
			break
		}

		name, value, hasValue := strings.Cut(a, "=")
		switch name {
		case "--config", "--theme":
			if !hasValue {
				if i+1 >= len(argv) {
					// Left for the command to reject.
					remaining = append(remaining, a)
					continue
				}
				i++
				value = argv[i]
			}
			if name == "--config" {
				args.ConfigPath = value
			} else {
				args.Theme = value
			}
		case "--no-markdown":
			args.NoMarkdown = true
		default:
			remaining = append(remaining, a)
		}
	}
	return remaining, args
}

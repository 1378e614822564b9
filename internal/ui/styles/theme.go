// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Mode selects how the theme decides between light and dark colors.
type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeDark  Mode = "dark"
	ModeLight Mode = "light"
)

// ParseMode converts a config value to a Mode. Unknown values mean auto.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDark:
		return ModeDark
	case ModeLight:
		return ModeLight
	default:
		return ModeAuto
	}
}

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	Mode         Mode
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Transcript
	UserBubble      lipgloss.Style
	CounselorBubble lipgloss.Style
	Timestamp       lipgloss.Style
	Speaker         lipgloss.Style

	// Input and status
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style
	Spinner          lipgloss.Style
	ListeningText    lipgloss.Style
	StatusBar        lipgloss.Style
	ShortcutKey      lipgloss.Style
	ShortcutDesc     lipgloss.Style
	Notice           lipgloss.Style
	ErrorText        lipgloss.Style

	// Welcome screen
	WelcomeBox    lipgloss.Style
	WelcomeTitle  lipgloss.Style
	WelcomeBlurb  lipgloss.Style
	WelcomeVerse  lipgloss.Style
	WelcomeCite   lipgloss.Style
	WelcomeButton lipgloss.Style
	WelcomeFooter lipgloss.Style
}

// NewTheme creates a theme. ModeAuto asks the terminal for its background;
// the other modes pin lipgloss to that background.
func NewTheme(mode Mode) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		Mode:         mode,
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Orange)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Bubbles: user on the right, counselor on the left.
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.CounselorBubble = lipgloss.NewStyle().
		Foreground(CounselorBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(CounselorBubbleBorder).
		Padding(0, 1)

	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Speaker = lipgloss.NewStyle().
		Foreground(Orange).
		Bold(true)

	// Input
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Orange).
		Bold(true)

	t.InputPlaceholder = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Orange)

	t.ListeningText = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Orange).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Notice = lipgloss.NewStyle().
		Foreground(Emerald)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Welcome screen
	t.WelcomeBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Orange).
		Padding(1, 4).
		Align(lipgloss.Center)

	t.WelcomeTitle = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Bold(true)

	t.WelcomeBlurb = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.WelcomeVerse = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.WelcomeCite = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.WelcomeButton = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Orange).
		Bold(true).
		Padding(0, 3)

	t.WelcomeFooter = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth is the widest a message bubble may grow: 80% of the
// terminal, never less than 20 columns.
func (t *Theme) BubbleWidth() int {
	w := t.Width * 4 / 5
	if w < 20 {
		w = 20
	}
	return w
}

// GlamourStyle names the glamour standard style matching the background.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

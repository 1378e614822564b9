// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/grace-tui/internal/ui/styles"
)

// init configures the lipgloss color profile. NO_COLOR, FORCE_COLOR and
// TTY detection are honored.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Orange)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Width(14)

	// ValueStyle is used for field values
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	// SpeakerStyle labels the counselor's replies in line mode
	SpeakerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.OrangeDeep)

	// YouStyle labels the user's prompt in line mode
	YouStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.TextSecondary)

	// DimStyle is used for secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// ErrorStyle is used for error messages
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Rose)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// field renders an aligned "label value" line.
func field(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

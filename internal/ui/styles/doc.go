// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the grace TUI.
//
// The palette is warm: orange accents for the counselor, slate for the
// user, amber for scripture and hints. Every color is a lipgloss
// AdaptiveColor so light and dark terminals both read well.
//
// # Theme
//
//	theme := styles.NewTheme(styles.ModeAuto)
//	fmt.Println(theme.HeaderTitle.Render("Grace Counseling"))
//
// ModeDark and ModeLight pin the background instead of asking the terminal.
package styles

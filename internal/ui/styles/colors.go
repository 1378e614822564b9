// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Orange - Primary accent, counselor messages, header, focus
var Orange = lipgloss.AdaptiveColor{Light: "#EA580C", Dark: "#FB923C"}

// OrangeDeep - Darker orange for filled backgrounds
var OrangeDeep = lipgloss.AdaptiveColor{Light: "#C2410C", Dark: "#9A3412"}

// Amber - Scripture, hints, the welcome footer
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// Rose - Errors and the apology notice
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Emerald - Saved and exported confirmations
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFBF5", Dark: "#0F172A"}

// SurfaceDim - Header and footer bars
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#FFF7ED", Dark: "#1E293B"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#FED7AA", Dark: "#334155"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F1F5F9"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#CBD5E1"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F172A"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

// User bubble - slate, right-aligned
var UserBubbleBg = lipgloss.AdaptiveColor{Light: "#334155", Dark: "#334155"}
var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#F8FAFC", Dark: "#F8FAFC"}
var UserBubbleBorder = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#475569"}

// Counselor bubble - soft orange, left-aligned
var CounselorBubbleBg = lipgloss.AdaptiveColor{Light: "#FFF7ED", Dark: "#1E293B"}
var CounselorBubbleFg = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F1F5F9"}
var CounselorBubbleBorder = lipgloss.AdaptiveColor{Light: "#FDBA74", Dark: "#EA580C"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet contains text indicators that work without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Info    string
}

// StatusIndicators are ASCII so they survive any terminal.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Info:    "[i]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Emerald).Bold(true).
		Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).
		Render(StatusIndicators.Error + " " + message)
}

// RenderInfo renders an informational message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Amber).
		Render(StatusIndicators.Info + " " + message)
}

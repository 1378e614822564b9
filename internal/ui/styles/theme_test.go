// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDark, ParseMode("dark"))
	assert.Equal(t, ModeLight, ParseMode(" LIGHT "))
	assert.Equal(t, ModeAuto, ParseMode("auto"))
	assert.Equal(t, ModeAuto, ParseMode("sepia"))
	assert.Equal(t, ModeAuto, ParseMode(""))
}

func TestNewTheme_PinnedModes(t *testing.T) {
	dark := NewTheme(ModeDark)
	assert.True(t, dark.IsDark)
	assert.Equal(t, ModeDark, dark.Mode)

	light := NewTheme(ModeLight)
	assert.False(t, light.IsDark)

	assert.Equal(t, ModeAuto, NewTheme("bogus").Mode)
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewTheme(ModeDark)
	for name, out := range map[string]string{
		"HeaderTitle":     theme.HeaderTitle.Render("Grace"),
		"UserBubble":      theme.UserBubble.Render("hi"),
		"CounselorBubble": theme.CounselorBubble.Render("hello"),
		"WelcomeBox":      theme.WelcomeBox.Render("Welcome Home"),
		"InputContainer":  theme.InputContainer.Render(">"),
	} {
		assert.NotEmpty(t, out, name)
	}
	// Bordered bubbles span several lines.
	assert.GreaterOrEqual(t, strings.Count(theme.UserBubble.Render("hi"), "\n"), 2)
}

func TestBubbleWidth(t *testing.T) {
	theme := NewTheme(ModeDark)
	theme.SetSize(100, 40)
	assert.Equal(t, 80, theme.BubbleWidth())
	theme.SetSize(10, 40)
	assert.Equal(t, 20, theme.BubbleWidth())
}

func TestGlamourStyle(t *testing.T) {
	theme := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	assert.Equal(t, "dark", theme.GlamourStyle())
	theme.IsDark = false
	assert.Equal(t, "light", theme.GlamourStyle())
	theme.ColorProfile = termenv.Ascii
	assert.Equal(t, "notty", theme.GlamourStyle())
}

func TestRenderHelpers(t *testing.T) {
	assert.Contains(t, RenderSuccess("saved"), "[OK] saved")
	assert.Contains(t, RenderError("failed"), "[X] failed")
	assert.Contains(t, RenderInfo("note"), "[i] note")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/grace-tui/internal/ui/styles"
)

const (
	welcomeTitle  = "Welcome Home"
	welcomeBlurb  = "I'm %s. I'm here to listen and walk with you. Let's take it one step at a time together."
	welcomeVerse  = `"Come to me, all you who are weary and burdened, and I will give you rest."`
	welcomeCite   = "Matthew 11:28"
	welcomeButton = "Start Session"
	footerText    = "Made with love and grace"
)

// renderHeader draws the persona title and tagline across the full width.
func (m Model) renderHeader() string {
	p := m.ctrl.Persona()
	title := m.theme.HeaderTitle.Render(p.Name + " Counseling")
	lines := []string{title}
	if p.Tagline != "" {
		lines = append(lines, m.theme.HeaderSubtitle.Render(p.Tagline))
	}
	w := m.width - 2
	if w < 1 {
		w = 1
	}
	return m.theme.Header.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// renderWelcome draws the screen shown before a session starts.
func (m Model) renderWelcome() string {
	header := m.renderHeader()
	footer := lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.theme.WelcomeFooter.Render(footerText))

	bw := m.width - 16
	if bw > 56 {
		bw = 56
	}
	if bw < 20 {
		bw = 20
	}

	var button string
	if m.starting || m.ctrl.Loading() {
		button = m.spinner.View() + " " + m.theme.ListeningText.Render("Starting...")
	} else {
		button = m.theme.WelcomeButton.Render(welcomeButton) + "\n" +
			m.theme.ShortcutDesc.Render("press enter")
	}

	parts := []string{
		m.theme.WelcomeTitle.Render(welcomeTitle),
		"",
		m.theme.WelcomeBlurb.Width(bw).Align(lipgloss.Center).Render(fmt.Sprintf(welcomeBlurb, m.ctrl.Persona().Name)),
		"",
		button,
		"",
		m.theme.WelcomeVerse.Width(bw).Align(lipgloss.Center).Render(welcomeVerse),
		m.theme.WelcomeCite.Render(welcomeCite),
	}
	if m.err != nil {
		parts = append(parts, "", styles.RenderError(m.err.Error()))
	}
	box := m.theme.WelcomeBox.Render(lipgloss.JoinVertical(lipgloss.Center, parts...))

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < lipgloss.Height(box) {
		bodyHeight = lipgloss.Height(box)
	}
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, box)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderChat draws header, transcript, input and status line.
func (m Model) renderChat() string {
	input := m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		input,
		m.renderStatus(),
	)
}

// renderStatus shows the last error, else the last notice, else key help.
func (m Model) renderStatus() string {
	var line string
	switch {
	case m.err != nil:
		line = styles.RenderError(m.err.Error())
	case m.notice != "":
		line = m.theme.Notice.Render(styles.StatusIndicators.Success + " " + m.notice)
	default:
		line = m.help.View(m.keys)
	}
	return m.theme.StatusBar.Render(line)
}

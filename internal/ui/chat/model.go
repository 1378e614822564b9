// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/grace-tui/internal/counsel"
	"github.com/jeranaias/grace-tui/internal/model"
	"github.com/jeranaias/grace-tui/internal/storage"
	"github.com/jeranaias/grace-tui/internal/ui/styles"
	"github.com/jeranaias/grace-tui/internal/util"
)

// errNoArchive is shown when saving without a transcript database.
var errNoArchive = errors.New("no transcript archive configured")

// Options configures the chat model.
type Options struct {
	// Store archives transcripts. Nil disables saving.
	Store Archiver

	// Autosave archives the transcript after each reply and before reset
	// or quit, once the user has said something.
	Autosave bool

	// Timeout bounds each request. Zero means no bound.
	Timeout time.Duration

	// ShowTimestamps adds HH:MM captions under each bubble.
	ShowTimestamps bool

	// WordWrap caps the text width inside bubbles. Zero means no cap.
	WordWrap int
}

// Model is the Bubble Tea model for the counseling screen.
type Model struct {
	ctrl  *counsel.Controller
	theme *styles.Theme
	opts  Options

	keys     KeyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int

	// starting is set between the start key and StartedMsg.
	starting bool
	notice   string
	err      error

	cache   *renderCache
	lastLen int
}

// New creates a chat model over ctrl.
func New(ctrl *counsel.Controller, theme *styles.Theme, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Tell me how you're feeling..."
	ti.PromptStyle = theme.InputPrompt
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.CharLimit = 4000

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = theme.Spinner

	m := Model{
		ctrl:     ctrl,
		theme:    theme,
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		cache:    newRenderCache(),
	}
	m.setSize(80, 24)
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the spinner and cursor blink.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StartedMsg:
		m.starting = false
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.err = nil
			m.input.Focus()
		}
		m.refresh()
		return m, nil

	case ReplyMsg:
		m.refresh()
		if msg.Reply == nil {
			return m, nil
		}
		return m, m.autosaveCmd()

	case EndedMsg:
		if msg.Err != nil {
			if !errors.Is(msg.Err, counsel.ErrBusy) && !errors.Is(msg.Err, counsel.ErrDiscarded) {
				m.err = msg.Err
			}
			return m, nil
		}
		m.refresh()
		return m, m.autosaveCmd()

	case SavedMsg:
		switch {
		case msg.Err != nil:
			m.err = fmt.Errorf("save failed: %w", msg.Err)
		case !msg.Auto:
			m.err = nil
			m.notice = "Saved conversation " + truncateID(msg.ID)
		}
		return m, nil

	case PersonaMsg:
		if msg.Err != nil {
			m.err = fmt.Errorf("config reload: %w", msg.Err)
			return m, nil
		}
		m.ctrl.SetPersona(msg.Persona)
		if m.ctrl.Started() {
			m.notice = "Persona updated; applies after reset"
		} else {
			m.notice = "Persona updated"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.ctrl.Loading() {
			m.refresh()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the current screen.
func (m Model) View() string {
	if !m.ctrl.Started() {
		return m.renderWelcome()
	}
	return m.renderChat()
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if cmd := m.autosaveCmd(); cmd != nil {
			return m, tea.Sequence(cmd, tea.Quit)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Save):
		if m.opts.Store == nil {
			m.err = errNoArchive
			return m, nil
		}
		snap := m.ctrl.Snapshot()
		if len(snap.Messages) == 0 {
			return m, nil
		}
		return m, saveCmd(m.opts.Store, m.transcript(snap), false)

	case key.Matches(msg, m.keys.Reset):
		cmd := m.autosaveCmd()
		m.ctrl.Reset()
		m.input.Reset()
		m.starting = false
		m.err = nil
		m.notice = ""
		m.refresh()
		return m, cmd

	case key.Matches(msg, m.keys.End):
		snap := m.ctrl.Snapshot()
		if !snap.Started || snap.Loading {
			return m, nil
		}
		m.notice = ""
		return m, endCmd(m.ctrl, m.opts.Timeout)

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	if !m.ctrl.Started() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit starts the session from the welcome screen or sends the input.
func (m Model) submit() (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()
	if !snap.Started {
		if snap.Loading || m.starting {
			return m, nil
		}
		m.starting = true
		m.err = nil
		return m, startCmd(m.ctrl, m.opts.Timeout)
	}

	// The send key does nothing while loading or with blank input.
	if snap.Loading || util.IsBlank(m.input.Value()) {
		return m, nil
	}

	ex, err := m.ctrl.Begin(m.input.Value())
	if err != nil {
		if !errors.Is(err, counsel.ErrBusy) && !errors.Is(err, counsel.ErrEmptyInput) {
			m.err = err
		}
		return m, nil
	}
	m.input.Reset()
	m.err = nil
	m.notice = ""
	m.refresh()
	return m, completeCmd(ex, m.opts.Timeout)
}

// =============================================================================
// HELPERS
// =============================================================================

// autosaveCmd archives the transcript when autosave is on and the user has
// said something. Returns nil otherwise.
func (m *Model) autosaveCmd() tea.Cmd {
	if m.opts.Store == nil || !m.opts.Autosave {
		return nil
	}
	snap := m.ctrl.Snapshot()
	hasUser := false
	for _, msg := range snap.Messages {
		if msg.IsUser() {
			hasUser = true
			break
		}
	}
	if !hasUser {
		return nil
	}
	return saveCmd(m.opts.Store, m.transcript(snap), true)
}

func (m *Model) transcript(snap model.Snapshot) *storage.Transcript {
	p := m.ctrl.Persona()
	return storage.FromSnapshot(snap, p.Name, p.Models)
}

// setSize lays out the screen for a terminal of w x h cells.
func (m *Model) setSize(w, h int) {
	m.width = w
	m.height = h
	m.theme.SetSize(w, h)
	m.help.Width = w

	// header (title, tagline, rule) + input box (3) + status line
	reserved := lipgloss.Height(m.renderHeader()) + 3 + 1
	vh := h - reserved
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = w
	m.viewport.Height = vh

	iw := w - 8
	if iw < 10 {
		iw = 10
	}
	m.input.Width = iw

	m.cache.items = make(map[string]string)
	m.refresh()
}

// refresh redraws the transcript into the viewport. New messages scroll to
// the bottom; otherwise the scroll position is kept unless already there.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	n := len(m.ctrl.Messages())
	if atBottom || n != m.lastLen {
		m.viewport.GotoBottom()
	}
	m.lastLen = n
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/docchat-tui/internal/session"
)

// refreshMsg is sent whenever the session reports a visible state change.
type refreshMsg struct{}

// statusMsg carries a transient line for the status bar.
type statusMsg struct {
	text  string
	isErr bool
}

// Model is the Bubble Tea model for the chat surface.
type Model struct {
	session *session.Session
	theme   *Theme

	width  int
	height int

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	markdown *glamour.TermRenderer

	status      string
	statusIsErr bool
	ready       bool
}

// NewModel builds the chat surface over an already-mounted session.
func NewModel(sess *session.Session) Model {
	input := textinput.New()
	input.Placeholder = "Ask anything, or /help for commands"
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		session: sess,
		theme:   NewTheme(termenv.ColorProfile()),
		input:   input,
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// rebuildMarkdown rebuilds the glamour renderer for the current width.
// Called on every resize.
func (m *Model) rebuildMarkdown() {
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.markdown = nil
		return
	}
	m.markdown = r
}

// Run starts the TUI over a mounted session and blocks until exit.
func Run(ctx context.Context, sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen(), tea.WithContext(ctx))
	sess.SetOnChange(func() { p.Send(refreshMsg{}) })
	defer sess.SetOnChange(nil)

	_, err := p.Run()
	return err
}

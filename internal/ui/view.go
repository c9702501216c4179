// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strconv"
	"strings"

	"github.com/jeranaias/docchat-tui/internal/mode"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputBox.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

// renderTranscript renders the whole message log.
func (m *Model) renderTranscript() string {
	msgs := m.session.Messages()
	if len(msgs) == 0 {
		return m.theme.Help.Render("No messages yet. Say hi, or /help for commands.")
	}

	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

// renderMessage renders one turn: label, body, then any source tag,
// attachment line, and suggested follow-ups.
func (m *Model) renderMessage(msg *model.Message) string {
	var b strings.Builder

	switch msg.Role {
	case model.RoleUser:
		b.WriteString(m.theme.UserLabel.Render("you"))
		b.WriteString("  ")
		b.WriteString(m.theme.UserText.Render(msg.Text))
		b.WriteString("\n")
		if msg.FileAttachment != nil {
			b.WriteString(m.theme.Attachment.Render("  📎 " + msg.FileAttachment.Filename))
			b.WriteString("\n")
		}

	case model.RoleBot:
		b.WriteString(m.theme.BotLabel.Render("docchat"))
		b.WriteString("\n")
		if msg.LoadingIndicator {
			b.WriteString(m.spinner.View() + " thinking...\n")
			break
		}
		if msg.Notice {
			b.WriteString(m.theme.NoticeText.Render(msg.Text))
			b.WriteString("\n")
			break
		}

		text := m.session.VisibleText(msg)
		if msg.IsStreaming() || m.markdown == nil {
			// Partial markdown renders badly; show raw text until the
			// reveal finishes.
			b.WriteString(text)
			b.WriteString("\n")
		} else if rendered, err := m.markdown.Render(text); err == nil {
			b.WriteString(strings.TrimRight(rendered, "\n"))
			b.WriteString("\n")
		} else {
			b.WriteString(text)
			b.WriteString("\n")
		}

		if !msg.IsStreaming() {
			if msg.SourceDocument != "" {
				b.WriteString(m.theme.SourceTag.Render("  source: " + msg.SourceDocument))
				b.WriteString("\n")
			}
			if msg.SourceURL != "" {
				b.WriteString(m.theme.SourceTag.Render("  from: " + msg.SourceURL))
				b.WriteString("\n")
			}
			for i, s := range msg.SuggestedFollowUps {
				b.WriteString(m.theme.Suggestion.Render("  ↳ [" + strconv.Itoa(i+1) + "] " + s))
				b.WriteString("\n")
			}
			if len(msg.SuggestedFollowUps) > 0 {
				b.WriteString(m.theme.Help.Render("  /s <n> to ask one"))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// statusLine renders identity, the active mode and its target, and any
// transient status text.
func (m *Model) statusLine() string {
	var parts []string

	identity := m.session.Identity()
	if identity == "" {
		identity = "not signed in"
	}
	parts = append(parts, m.theme.StatusBar.Render(identity))

	current := m.session.Mode()
	parts = append(parts, m.theme.StatusMode.Render(current.String()))
	switch current {
	case mode.Csv:
		parts = append(parts, m.theme.StatusTarget.Render(m.session.ActiveDataset()))
	case mode.Website:
		parts = append(parts, m.theme.StatusTarget.Render(m.session.ActiveWebsite()))
	}

	if m.status != "" {
		style := m.theme.StatusBar
		if m.statusIsErr {
			style = m.theme.StatusError
		}
		parts = append(parts, style.Render(m.status))
	}

	line := strings.Join(parts, m.theme.StatusBar.Render(" │ "))
	return util.TruncateWidth(line, m.width)
}

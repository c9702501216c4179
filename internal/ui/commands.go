// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand splits "/name arg..." into its parts. The leading slash
// must already be present.
func ParseCommand(text string) Command {
	text = strings.TrimPrefix(strings.TrimSpace(text), "/")
	name, arg, _ := strings.Cut(text, " ")
	return Command{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}
}

const helpText = `/kb            chat with your uploaded PDF knowledge base
/kb off        back to plain chat
/csv [file]    chat with a CSV dataset (latest upload if no name given)
/web <url>     chat with a website
/plain         back to plain chat
/s <n>         ask the n-th suggested follow-up from the last reply
/upload <path> upload a PDF or CSV file
/files         list backend documents
/delete <file> delete a backend document
/reset         clear the conversation
/logout        sign out and forget local state
/quit          exit`

// runCommand executes a slash command and returns the updated model.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	cmd := ParseCommand(text)
	sess := m.session

	switch cmd.Name {
	case "help":
		// Shown in the transcript pane; the next state change redraws
		// over it.
		m.viewport.SetContent(m.theme.Help.Render(helpText))
		return m, nil

	case "quit", "exit":
		sess.StopReveals()
		return m, tea.Quit

	case "kb":
		if cmd.Arg == "off" {
			sess.Deactivate()
			return m, status("Plain chat.")
		}
		sess.ActivateKnowledgeBase()
		return m, status("Chatting with your knowledge base.")

	case "csv":
		return m, func() tea.Msg {
			var err error
			if cmd.Arg == "" {
				err = sess.ActivateLatestDataset()
			} else {
				err = sess.ActivateDataset(cmd.Arg)
			}
			if err != nil {
				return statusMsg{text: err.Error(), isErr: true}
			}
			return statusMsg{text: "Chatting with " + sess.ActiveDataset() + "."}
		}

	case "web":
		return m, func() tea.Msg {
			if err := sess.ActivateWebsite(cmd.Arg); err != nil {
				return statusMsg{text: "Usage: /web <url>", isErr: true}
			}
			return statusMsg{text: "Chatting with " + cmd.Arg + "."}
		}

	case "plain", "off":
		sess.Deactivate()
		return m, status("Plain chat.")

	case "s", "suggest":
		n, err := strconv.Atoi(cmd.Arg)
		if err != nil {
			return m, status("Usage: /s <number>")
		}
		return m, func() tea.Msg {
			if err := sess.SelectSuggestion(context.Background(), n); err != nil {
				return statusMsg{text: err.Error(), isErr: true}
			}
			return refreshMsg{}
		}

	case "upload":
		if cmd.Arg == "" {
			return m, status("Usage: /upload <path>")
		}
		return m, func() tea.Msg {
			if err := sess.UploadPath(context.Background(), cmd.Arg); err != nil {
				return statusMsg{text: err.Error(), isErr: true}
			}
			return refreshMsg{}
		}

	case "files":
		return m, func() tea.Msg {
			sess.RefreshCatalog(context.Background())
			datasets := sess.KnownDatasets()
			if len(datasets) == 0 {
				return statusMsg{text: "No datasets on the backend."}
			}
			return statusMsg{text: "Datasets: " + strings.Join(datasets, ", ")}
		}

	case "delete":
		if cmd.Arg == "" {
			return m, status("Usage: /delete <filename>")
		}
		return m, func() tea.Msg {
			if err := sess.DeleteDocument(context.Background(), cmd.Arg); err != nil {
				return statusMsg{text: err.Error(), isErr: true}
			}
			return statusMsg{text: "Deleted " + cmd.Arg + "."}
		}

	case "reset":
		return m, func() tea.Msg {
			sess.Reset(context.Background())
			return refreshMsg{}
		}

	case "logout":
		sess.SignOut()
		return m, tea.Quit

	default:
		return m, func() tea.Msg {
			return statusMsg{text: "Unknown command /" + cmd.Name + " (try /help)", isErr: true}
		}
	}
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

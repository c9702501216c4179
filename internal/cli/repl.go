// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the line-mode chat REPL for terminals where the
// full-screen surface is unavailable, such as pipes and dumb terminals.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/jeranaias/docchat-tui/internal/mode"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/ui"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// =============================================================================
// INPUT
// =============================================================================

// input wraps liner with persisted history.
type input struct {
	line        *liner.State
	historyFile string
}

func newInput(configDir string) *input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	in := &input{
		line:        line,
		historyFile: filepath.Join(configDir, "repl_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *input) read(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

func (in *input) close() {
	if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
		in.line.WriteHistory(f)
		f.Close()
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// Run drives the line-mode chat loop until /quit, Ctrl+D, or an aborted
// prompt. The session must already be mounted.
func Run(ctx context.Context, sess *session.Session, configDir string) error {
	in := newInput(configDir)
	defer in.close()

	fmt.Println(infoStyle.Render("docchat — type /help for commands, /quit to exit"))
	printTranscript(sess)

	for {
		text, err := in.read(prompt(sess))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			// io.EOF on Ctrl+D.
			return nil
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := runCommand(ctx, sess, text); quit {
				return nil
			}
			continue
		}

		before := len(sess.Messages())
		if err := sess.Send(ctx, text); err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			continue
		}
		waitForReveals(sess)
		printNewMessages(sess, before+1) // skip the user's own echo
	}
}

// prompt renders the identity and active mode into the input prompt.
func prompt(sess *session.Session) string {
	label := "plain"
	switch sess.Mode() {
	case mode.KnowledgeBase:
		label = "kb"
	case mode.Csv:
		label = "csv:" + sess.ActiveDataset()
	case mode.Website:
		label = "web:" + sess.ActiveWebsite()
	}
	return promptStyle.Render("["+label+"] » ") + " "
}

// waitForReveals blocks until no message is still streaming, so the
// reply is printed in full before the next prompt.
func waitForReveals(sess *session.Session) {
	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		streaming := false
		for _, m := range sess.Messages() {
			if m.IsStreaming() {
				streaming = true
			}
		}
		if !streaming {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// waitForTurn blocks until the log has grown past before, for turns
// that arrive asynchronously through the event bus.
func waitForTurn(sess *session.Session, before int) {
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if len(sess.Messages()) > before {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func printTranscript(sess *session.Session) {
	for _, m := range sess.Messages() {
		printMessage(m)
	}
}

func printNewMessages(sess *session.Session, from int) {
	msgs := sess.Messages()
	for i := from; i < len(msgs); i++ {
		printMessage(msgs[i])
	}
}

func printMessage(m *model.Message) {
	switch m.Role {
	case model.RoleUser:
		fmt.Println(promptStyle.Render("you:"), m.Text)
	case model.RoleBot:
		if m.LoadingIndicator {
			return
		}
		if m.Notice {
			fmt.Println(infoStyle.Render("docchat: " + m.Text))
			return
		}
		fmt.Println(botStyle.Render("docchat:"), m.Text)
		if m.SourceDocument != "" {
			fmt.Println(infoStyle.Render("  source: " + m.SourceDocument))
		}
		if m.SourceURL != "" {
			fmt.Println(infoStyle.Render("  from: " + m.SourceURL))
		}
		for i, s := range m.SuggestedFollowUps {
			fmt.Println(infoStyle.Render("  ↳ [" + strconv.Itoa(i+1) + "] " + s))
		}
		if len(m.SuggestedFollowUps) > 0 {
			fmt.Println(infoStyle.Render("  /s <n> to ask one"))
		}
	}
}

// =============================================================================
// COMMANDS
// =============================================================================

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

// runCommand executes one slash command, returning true when the loop
// should exit.
func runCommand(ctx context.Context, sess *session.Session, text string) bool {
	cmd := ui.ParseCommand(text)

	switch cmd.Name {
	case "help":
		fmt.Println(infoStyle.Render(helpText))

	case "quit", "exit":
		sess.StopReveals()
		return true

	case "logout":
		sess.SignOut()
		fmt.Println(infoStyle.Render("Signed out."))
		return true

	case "kb":
		if cmd.Arg == "off" {
			sess.Deactivate()
			fmt.Println(infoStyle.Render("Plain chat."))
			break
		}
		sess.ActivateKnowledgeBase()
		fmt.Println(infoStyle.Render("Chatting with your knowledge base."))

	case "csv":
		var err error
		if cmd.Arg == "" {
			err = sess.ActivateLatestDataset()
		} else {
			err = sess.ActivateDataset(cmd.Arg)
		}
		if err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("Chatting with " + sess.ActiveDataset() + "."))

	case "web":
		if err := sess.ActivateWebsite(cmd.Arg); err != nil {
			fmt.Println(errStyle.Render("Usage: /web <url>"))
			break
		}
		fmt.Println(infoStyle.Render("Chatting with " + cmd.Arg + "."))

	case "plain", "off":
		sess.Deactivate()
		fmt.Println(infoStyle.Render("Plain chat."))

	case "s", "suggest":
		n, err := strconv.Atoi(cmd.Arg)
		if err != nil {
			fmt.Println(errStyle.Render("Usage: /s <number>"))
			break
		}
		before := len(sess.Messages())
		if err := sess.SelectSuggestion(ctx, n); err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			break
		}
		// The turn arrives through the event bus; wait for it to land
		// before printing.
		waitForTurn(sess, before)
		waitForReveals(sess)
		printNewMessages(sess, before)

	case "upload":
		if cmd.Arg == "" {
			fmt.Println(errStyle.Render("Usage: /upload <path>"))
			break
		}
		before := len(sess.Messages())
		if err := sess.UploadPath(ctx, cmd.Arg); err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			break
		}
		printNewMessages(sess, before)

	case "files":
		sess.RefreshCatalog(ctx)
		datasets := sess.KnownDatasets()
		if len(datasets) == 0 {
			fmt.Println(infoStyle.Render("No datasets on the backend."))
			break
		}
		fmt.Println(infoStyle.Render("Datasets: " + strings.Join(datasets, ", ")))

	case "delete":
		if cmd.Arg == "" {
			fmt.Println(errStyle.Render("Usage: /delete <filename>"))
			break
		}
		if err := sess.DeleteDocument(ctx, cmd.Arg); err != nil {
			fmt.Println(errStyle.Render(err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("Deleted " + cmd.Arg + "."))

	case "reset":
		sess.Reset(ctx)
		fmt.Println(infoStyle.Render("Conversation cleared."))

	default:
		fmt.Println(errStyle.Render("Unknown command /" + cmd.Name + " (try /help)"))
	}
	return false
}

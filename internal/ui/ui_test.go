// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/session"
	"github.com/jeranaias/docchat-tui/internal/store"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		name string
		arg  string
	}{
		{"/help", "help", ""},
		{"/csv sales.csv", "csv", "sales.csv"},
		{"/WEB https://example.com", "web", "https://example.com"},
		{"  /kb off  ", "kb", "off"},
		{"/upload  ~/report.pdf ", "upload", "~/report.pdf"},
		{"/s 2", "s", "2"},
	}
	for _, tt := range tests {
		got := ParseCommand(tt.in)
		if got.Name != tt.name || got.Arg != tt.arg {
			t.Errorf("ParseCommand(%q) = %+v, want {%s %s}", tt.in, got, tt.name, tt.arg)
		}
	}
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	adapter := store.NewAdapter(store.NewMemoryTier(), store.NewMemoryTier(), zap.NewNop())
	return session.New(session.Options{
		Identity: "a@b.com",
		Adapter:  adapter,
		Logger:   zap.NewNop(),
	})
}

func TestEmptyTranscriptHintsAtHelp(t *testing.T) {
	m := NewModel(testSession(t))
	m.width = 80

	out := m.renderTranscript()
	if !strings.Contains(out, "/help") {
		t.Errorf("empty transcript should hint at /help, got %q", out)
	}
}

func TestStatusLineShowsIdentityAndMode(t *testing.T) {
	sess := testSession(t)
	m := NewModel(sess)
	m.width = 120

	line := m.statusLine()
	if !strings.Contains(line, "a@b.com") {
		t.Errorf("status line missing identity: %q", line)
	}
	if !strings.Contains(line, "plain") {
		t.Errorf("status line missing mode: %q", line)
	}
}

func TestRenderMessageBotWithSources(t *testing.T) {
	sess := testSession(t)
	m := NewModel(sess)
	m.width = 80

	bot := model.NewBotMessage("the answer")
	bot.SourceDocument = "report.pdf"
	bot.SuggestedFollowUps = []string{"and then?"}

	out := m.renderMessage(bot)
	if !strings.Contains(out, "the answer") {
		t.Errorf("body missing: %q", out)
	}
	if !strings.Contains(out, "report.pdf") {
		t.Errorf("source tag missing: %q", out)
	}
	if !strings.Contains(out, "[1] and then?") {
		t.Errorf("numbered follow-up missing: %q", out)
	}
	if !strings.Contains(out, "/s <n>") {
		t.Errorf("selection hint missing: %q", out)
	}
}

func TestRenderMessageNoticeSkipsMarkdownAndTags(t *testing.T) {
	sess := testSession(t)
	m := NewModel(sess)
	m.width = 80

	notice := model.NewNoticeMessage("Please sign in to chat.")
	notice.SourceDocument = "never-shown.pdf"

	out := m.renderMessage(notice)
	if !strings.Contains(out, "Please sign in to chat.") {
		t.Errorf("notice text missing: %q", out)
	}
	if strings.Contains(out, "never-shown.pdf") {
		t.Errorf("notice should not carry source tags: %q", out)
	}
}

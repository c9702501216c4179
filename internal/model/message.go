// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
package model

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleBot:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// ATTACHMENT TYPES
// =============================================================================

// FileKind classifies an uploaded file.
type FileKind string

const (
	FileKindPDF FileKind = "pdf"
	FileKindCSV FileKind = "csv"
)

// FileAttachment describes a file echoed into the transcript alongside the
// user turn that uploaded it.
type FileAttachment struct {
	Filename    string   `json:"filename"`
	Kind        FileKind `json:"kind"`
	RowCount    int      `json:"row_count,omitempty"`
	ColumnNames []string `json:"column_names,omitempty"`
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single turn in the conversation log.
//
// A message is immutable once appended except for its own in-flight
// lifetime: LoadingIndicator marks a placeholder awaiting its terminal
// content, and the streaming flag marks a resolved bot message whose
// text is still being revealed by the streaming renderer.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. Text is the full canonical content; for a streaming bot
	// message the renderer keeps its own reveal cursor over it.
	Text string `json:"text"`

	// In-flight lifetime flags (not persisted). The streaming flag is
	// atomic: the renderer goroutine flips it while UI goroutines read.
	streaming        atomic.Bool
	LoadingIndicator bool `json:"-"`

	// Source attribution
	SourceDocument string `json:"source_document,omitempty"`
	SourceURL      string `json:"source_url,omitempty"`

	// Suggested follow-up prompts, in backend order.
	SuggestedFollowUps []string `json:"suggested_follow_ups,omitempty"`

	// Visualizations holds image references (URLs or data URIs) returned
	// with a CSV-mode answer, in backend order.
	Visualizations []string `json:"visualizations,omitempty"`

	// FileAttachment is set on user turns that carried an upload.
	FileAttachment *FileAttachment `json:"file_attachment,omitempty"`

	// Notice marks a bot message produced by the client itself (sign-in
	// prompts, eviction notices) rather than by the backend.
	Notice bool `json:"notice,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewBotMessage creates a new terminal bot message.
func NewBotMessage(text string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      RoleBot,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewNoticeMessage creates a bot message originating in the client
// itself rather than the backend.
func NewNoticeMessage(text string) *Message {
	m := NewBotMessage(text)
	m.Notice = true
	return m
}

// NewPlaceholder creates a provisional bot message marking an in-flight
// response. It must always be resolved in place by the log.
func NewPlaceholder() *Message {
	return &Message{
		ID:               generateID(),
		Role:             RoleBot,
		Timestamp:        time.Now(),
		LoadingIndicator: true,
	}
}

// IsPlaceholder reports whether the message is an unresolved placeholder.
func (m *Message) IsPlaceholder() bool {
	return m.LoadingIndicator
}

// IsStreaming reports whether the text is still being revealed.
func (m *Message) IsStreaming() bool {
	return m.streaming.Load()
}

// SetStreaming flips the reveal-in-progress flag. Safe across goroutines.
func (m *Message) SetStreaming(v bool) {
	m.streaming.Store(v)
}

// HasPDFContent reports whether the message references document (PDF)
// knowledge-base content.
func (m *Message) HasPDFContent() bool {
	if m.SourceDocument != "" {
		return true
	}
	return m.FileAttachment != nil && m.FileAttachment.Kind == FileKindPDF
}

// HasCSVContent reports whether the message references a CSV dataset.
func (m *Message) HasCSVContent() bool {
	if len(m.Visualizations) > 0 {
		return true
	}
	return m.FileAttachment != nil && m.FileAttachment.Kind == FileKindCSV
}

// HasWebsiteContent reports whether the message references website chat.
func (m *Message) HasWebsiteContent() bool {
	return m.SourceURL != ""
}

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}

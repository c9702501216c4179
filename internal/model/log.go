// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "errors"

// =============================================================================
// MESSAGE LOG
// =============================================================================

// Log errors.
var (
	// ErrNoPlaceholder is returned when resolving a position that does not
	// hold an unresolved placeholder.
	ErrNoPlaceholder = errors.New("no placeholder at position")

	// ErrStaleGeneration is returned when resolving against a log that has
	// been cleared since the placeholder was appended.
	ErrStaleGeneration = errors.New("log generation changed")
)

// Log is an ordered, append-only sequence of conversation turns.
//
// Insertion order is chronological turn order is rendering order. The only
// permitted in-place mutation is resolving a loading placeholder at its
// recorded position. The log is owned exclusively by the session
// orchestrator; it is not safe for concurrent use.
type Log struct {
	messages []*Message

	// generation increments on Clear. A placeholder appended under an
	// earlier generation can no longer be resolved, which is how results
	// of in-flight calls are discarded after a reset.
	generation uint64
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{}
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	return len(l.messages)
}

// Generation returns the current log generation.
func (l *Log) Generation() uint64 {
	return l.generation
}

// At returns the message at position i, or nil if out of range.
func (l *Log) At(i int) *Message {
	if i < 0 || i >= len(l.messages) {
		return nil
	}
	return l.messages[i]
}

// Messages returns the backing slice in order. Callers must treat it as
// read-only.
func (l *Log) Messages() []*Message {
	return l.messages
}

// Last returns the final message, or nil for an empty log.
func (l *Log) Last() *Message {
	if len(l.messages) == 0 {
		return nil
	}
	return l.messages[len(l.messages)-1]
}

// Append adds a message to the end of the log and returns its position.
func (l *Log) Append(m *Message) int {
	l.messages = append(l.messages, m)
	return len(l.messages) - 1
}

// AppendPlaceholder appends a loading placeholder and returns a Pending
// handle recording its position and the current generation.
func (l *Log) AppendPlaceholder() Pending {
	pos := l.Append(NewPlaceholder())
	return Pending{Position: pos, Generation: l.generation}
}

// Resolve replaces the placeholder recorded by p with the terminal message
// m, in place. The log length does not change and the position keeps its
// bot role. Resolving after a Clear fails with ErrStaleGeneration and the
// terminal message is discarded.
func (l *Log) Resolve(p Pending, m *Message) error {
	if p.Generation != l.generation {
		return ErrStaleGeneration
	}
	cur := l.At(p.Position)
	if cur == nil || !cur.LoadingIndicator {
		return ErrNoPlaceholder
	}
	m.Role = RoleBot
	l.messages[p.Position] = m
	return nil
}

// HasPending reports whether any placeholder is still unresolved.
func (l *Log) HasPending() bool {
	for _, m := range l.messages {
		if m.LoadingIndicator {
			return true
		}
	}
	return false
}

// Clear empties the log and bumps the generation so that outstanding
// Pending handles become stale.
func (l *Log) Clear() {
	l.messages = nil
	l.generation++
}

// HasPDFContent reports whether any message references knowledge-base
// document content.
func (l *Log) HasPDFContent() bool {
	for _, m := range l.messages {
		if m.HasPDFContent() {
			return true
		}
	}
	return false
}

// HasCSVContent reports whether any message references a CSV dataset.
func (l *Log) HasCSVContent() bool {
	for _, m := range l.messages {
		if m.HasCSVContent() {
			return true
		}
	}
	return false
}

// HasWebsiteContent reports whether any message references website chat.
func (l *Log) HasWebsiteContent() bool {
	for _, m := range l.messages {
		if m.HasWebsiteContent() {
			return true
		}
	}
	return false
}

// =============================================================================
// PENDING HANDLE
// =============================================================================

// Pending identifies an unresolved placeholder by position and the log
// generation it was appended under.
type Pending struct {
	Position   int
	Generation uint64
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the persisted form of the log. Placeholders are never
// snapshotted: a loading indicator must not survive a reload as the
// permanent last entry.
type Snapshot struct {
	Messages []*Message `json:"messages"`
}

// Snapshot captures the resolved messages for persistence.
func (l *Log) Snapshot() Snapshot {
	out := make([]*Message, 0, len(l.messages))
	for _, m := range l.messages {
		if m.LoadingIndicator {
			continue
		}
		out = append(out, m)
	}
	return Snapshot{Messages: out}
}

// Restore replaces the log contents from a snapshot, clearing any
// transient flags.
func (l *Log) Restore(s Snapshot) {
	l.messages = nil
	for _, m := range s.Messages {
		if m == nil || m.LoadingIndicator {
			continue
		}
		m.SetStreaming(false)
		l.messages = append(l.messages, m)
	}
}

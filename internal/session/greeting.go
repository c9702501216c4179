// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// =============================================================================
// GREETINGS
// =============================================================================

// greetingPatterns are the user turns answered locally. Matching is
// case-insensitive against the trimmed text with trailing punctuation
// stripped.
var greetingPatterns = map[string]struct{}{
	"hi":           {},
	"hello":        {},
	"hey":          {},
	"yo":           {},
	"good morning": {},
	"good evening": {},
	"howdy":        {},
}

var titleCaser = cases.Title(language.English)

// greetingReply returns the locally-synthesized reply for a greeting
// turn, or ok=false when the turn is not a greeting and must go to the
// backend. Callers must hold s.mu.
func (s *Session) greetingReply(text string) (string, bool) {
	norm := strings.ToLower(strings.TrimSpace(text))
	norm = strings.TrimRight(norm, ".!?")
	norm = strings.TrimSpace(norm)
	if _, ok := greetingPatterns[norm]; !ok {
		return "", false
	}

	name := s.friendlyName()
	if name == "" {
		return "Hello! How can I help you today?", true
	}
	return "Hello " + name + "! How can I help you today?", true
}

// friendlyName derives a display name for greetings: the stored display
// name when present, otherwise the title-cased local part of the email
// address. Callers must hold s.mu.
func (s *Session) friendlyName() string {
	if s.displayName != "" {
		return s.displayName
	}
	if s.identity == "" {
		return ""
	}
	local, _, found := strings.Cut(s.identity, "@")
	if !found || local == "" {
		return ""
	}
	// "jane.doe" and "jane_doe" both read as "Jane Doe".
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return titleCaser.String(local)
}

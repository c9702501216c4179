// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui is the full-screen chat surface, built on Bubble Tea.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the chat surface. It adapts to
// the terminal's color capability.
type Theme struct {
	Profile termenv.Profile

	// Transcript
	UserLabel   lipgloss.Style
	BotLabel    lipgloss.Style
	UserText    lipgloss.Style
	SourceTag   lipgloss.Style
	Suggestion  lipgloss.Style
	Attachment  lipgloss.Style
	NoticeText  lipgloss.Style

	// Chrome
	InputBox     lipgloss.Style
	StatusBar    lipgloss.Style
	StatusMode   lipgloss.Style
	StatusTarget lipgloss.Style
	StatusError  lipgloss.Style
	Help         lipgloss.Style
}

// NewTheme builds the theme for the detected color profile.
func NewTheme(profile termenv.Profile) *Theme {
	accent := lipgloss.Color("12")
	bot := lipgloss.Color("10")
	dim := lipgloss.Color("8")
	warn := lipgloss.Color("11")
	errc := lipgloss.Color("9")

	return &Theme{
		Profile: profile,

		UserLabel:  lipgloss.NewStyle().Foreground(accent).Bold(true),
		BotLabel:   lipgloss.NewStyle().Foreground(bot).Bold(true),
		UserText:   lipgloss.NewStyle(),
		SourceTag:  lipgloss.NewStyle().Foreground(dim).Italic(true),
		Suggestion: lipgloss.NewStyle().Foreground(warn),
		Attachment: lipgloss.NewStyle().Foreground(dim),
		NoticeText: lipgloss.NewStyle().Foreground(warn).Italic(true),

		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dim).
			Padding(0, 1),
		StatusBar:    lipgloss.NewStyle().Foreground(dim),
		StatusMode:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		StatusTarget: lipgloss.NewStyle().Foreground(bot),
		StatusError:  lipgloss.NewStyle().Foreground(errc),
		Help:         lipgloss.NewStyle().Foreground(dim),
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns one authenticated chat session: the message log,
// the exclusive context-mode machine, persistence across two storage
// tiers, and the request/response cycle against the backend facade.
//
// The session is the only writer of its log and mode machine. UI shells
// (the TUI and the line REPL) call its exported commands and render from
// its accessors; cross-component effects such as uploads finishing
// outside the chat surface arrive over the process event bus.
package session

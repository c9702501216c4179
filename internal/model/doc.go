// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversation turns.
//
// The central types are Message, one turn of the conversation with its
// source attribution and in-flight flags, and Log, the ordered append-only
// sequence of turns. The log supports exactly one in-place mutation:
// resolving a loading placeholder with its terminal message at the same
// position. Everything else is append or clear.
//
// The log is owned by the session orchestrator and is not safe for
// concurrent use.
package model

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the two-tier persistence adapter.
//
// Two key-value tiers sit behind one Tier contract: a durable tier on
// SQLite that survives restarts, and a session tier in process memory
// that does not. The Adapter is the JSON encode/decode boundary over
// both; any stored value that fails to decode is treated as absent and
// removed, so corruption never escapes the package as an error.
package store

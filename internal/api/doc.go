// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the network facade for the docchat backend.
//
// The backend is unstable in two senses: it may be unreachable, and the
// request shapes it accepts are not reliably documented. The facade
// absorbs both. CSV chat tries multipart then falls back once to JSON;
// website chat walks a fixed ordered list of four request-shape variants
// and takes the first HTTP success; catalog and history listings degrade
// server failures to "empty" instead of surfacing alarms.
//
// Every operation is a pure request/response contract. Results carry an
// explicit success flag plus either data or a human-readable error
// string; callers (the session orchestrator) apply all effects.
package api

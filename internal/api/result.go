// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// =============================================================================
// RESULT CONTRACTS
// =============================================================================

// ChatResult is the normalized outcome of a chat operation. OK is the
// explicit success flag: a failed call carries a human-readable Error and
// no data; the facade never fabricates success out of a failure.
type ChatResult struct {
	OK                 bool
	Text               string
	SourceDocument     string
	SuggestedFollowUps []string
	Visualizations     []string
	Error              string
}

// failedChat builds an unsuccessful ChatResult.
func failedChat(msg string) ChatResult {
	return ChatResult{Error: msg}
}

// UploadResult is the outcome of a document upload.
type UploadResult struct {
	OK         bool
	Kind       string // "pdf" or "csv"
	StoredName string
	Error      string
}

// HistoryEntry is one role-tagged turn of the remote transcript.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// RESPONSE BODY NORMALIZATION
// =============================================================================

// chatResponseBody captures the heterogeneous field names the backend has
// been observed to use. Exactly which ones appear varies by endpoint and
// deployment, so every candidate is declared and the first non-empty one
// wins.
type chatResponseBody struct {
	Response string `json:"response"`
	Answer   string `json:"answer"`
	Message  string `json:"message"`
	Output   string `json:"output"`

	SourceDocument string `json:"source_document"`
	Source         string `json:"source"`

	SuggestedQuestions []string `json:"suggested_questions"`
	FollowUpQuestions  []string `json:"follow_up_questions"`

	Images []string `json:"images"`
	Graphs []string `json:"graphs"`

	// Detail is the backend's error field on non-2xx responses.
	Detail string `json:"detail"`
}

// text returns the first non-empty content field.
func (b *chatResponseBody) text() string {
	for _, s := range []string{b.Response, b.Answer, b.Message, b.Output} {
		if s != "" {
			return s
		}
	}
	return ""
}

// followUps returns whichever follow-up list was populated.
func (b *chatResponseBody) followUps() []string {
	if len(b.SuggestedQuestions) > 0 {
		return b.SuggestedQuestions
	}
	return b.FollowUpQuestions
}

// visualizations returns whichever image list was populated.
func (b *chatResponseBody) visualizations() []string {
	if len(b.Images) > 0 {
		return b.Images
	}
	return b.Graphs
}

// parseChatBody decodes a chat response body into a successful ChatResult.
// An unparseable or contentless body yields a failure, not a fabricated
// answer.
func parseChatBody(raw []byte) ChatResult {
	var body chatResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return failedChat("The server returned an unexpected response. Please try again.")
	}
	text := body.text()
	if text == "" {
		return failedChat("The server returned an empty response. Please try again.")
	}
	return ChatResult{
		OK:                 true,
		Text:               text,
		SourceDocument:     firstNonEmpty(body.SourceDocument, body.Source),
		SuggestedFollowUps: body.followUps(),
		Visualizations:     body.visualizations(),
	}
}

// =============================================================================
// STATUS CODE MESSAGES
// =============================================================================

// statusMessage maps an HTTP status code to the user-facing message shown
// in place of the expected response.
func statusMessage(code int) string {
	switch code {
	case http.StatusNotFound:
		return "The requested resource was not found on the server."
	case http.StatusUnauthorized:
		return "You are not authorized. Please sign in again."
	case http.StatusForbidden:
		return "Access to this resource was denied."
	case http.StatusRequestEntityTooLarge:
		return "The request was too large for the server to accept."
	case http.StatusInternalServerError:
		return "The server encountered an internal error. Please try again later."
	default:
		return fmt.Sprintf("The server returned an unexpected status (%d). Please try again.", code)
	}
}

// connectivityMessage is the generic transport-failure message.
const connectivityMessage = "Could not reach the server. Please check your connection and try again."

// errorFromBody extracts the backend's error detail when present,
// otherwise falls back to the status-specific message.
func errorFromBody(code int, raw []byte) string {
	var body chatResponseBody
	if err := json.Unmarshal(raw, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return statusMessage(code)
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

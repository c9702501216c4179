// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// PLAIN / KNOWLEDGE-BASE / CSV CHAT
// =============================================================================

// SendMessage sends a user turn through the plain-chat pipeline.
//
// When dataset is empty the message goes to /generate-response/ as a
// single JSON request; the backend's knowledge-base flag decides whether
// document context applies. When dataset is set the message goes to
// /ask-csv/ as a multipart form first and, on any non-success status, is
// immediately retried once with a JSON body carrying the same logical
// fields before the failure surfaces. The retry fires even for statuses a
// retry cannot fix (observed product behavior, kept as is).
func (c *Client) SendMessage(ctx context.Context, identity, text, dataset string) ChatResult {
	if dataset != "" {
		return c.askCSV(ctx, identity, text, dataset)
	}
	return c.generateResponse(ctx, identity, text)
}

// generateResponse posts a JSON {query} to /generate-response/?email=.
func (c *Client) generateResponse(ctx context.Context, identity, text string) ChatResult {
	endpoint := c.baseURL + "/generate-response/?email=" + url.QueryEscape(identity)

	payload, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		return failedChat(connectivityMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return failedChat(connectivityMessage)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return failedChat(connectivityMessage)
	}
	raw, err := readBody(resp)
	if err != nil {
		return failedChat(connectivityMessage)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failedChat(errorFromBody(resp.StatusCode, raw))
	}
	return parseChatBody(raw)
}

// askCSV posts to /ask-csv/, multipart first with one JSON fallback.
func (c *Client) askCSV(ctx context.Context, identity, text, dataset string) ChatResult {
	endpoint := c.baseURL + "/ask-csv/"
	fields := map[string]string{
		"email":    identity,
		"prompt":   text,
		"filename": dataset,
	}

	result, status := c.postFields(ctx, endpoint, EncodingMultipart, fields)
	if result.OK {
		return result
	}

	c.logger.Debug("csv multipart attempt failed, retrying as json",
		zap.Int("status", status),
		zap.String("dataset", dataset))

	retried, _ := c.postFields(ctx, endpoint, EncodingJSON, fields)
	if retried.OK {
		return retried
	}
	// Surface the fallback attempt's failure; it is the most recent word
	// from the backend.
	return retried
}

// postFields posts an encoded field set and normalizes the response.
// Returns the result and the HTTP status (0 for transport failures).
func (c *Client) postFields(ctx context.Context, endpoint string, enc Encoding, fields map[string]string) (ChatResult, int) {
	body, contentType, err := encodeFields(enc, fields)
	if err != nil {
		return failedChat(connectivityMessage), 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return failedChat(connectivityMessage), 0
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(ctx, req)
	if err != nil {
		return failedChat(connectivityMessage), 0
	}
	raw, err := readBody(resp)
	if err != nil {
		return failedChat(connectivityMessage), resp.StatusCode
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failedChat(errorFromBody(resp.StatusCode, raw)), resp.StatusCode
	}
	return parseChatBody(raw), resp.StatusCode
}

// =============================================================================
// WEBSITE CHAT
// =============================================================================

// ChatWithWebsite sends a user turn against an embedded website.
//
// The backend's accepted field names are not reliably known, so the fixed
// ordered variant list in websiteShapes is walked and the first HTTP
// success wins. Each variant runs exactly once regardless of why earlier
// ones failed; when all fail, the result aggregates every variant's
// failure.
func (c *Client) ChatWithWebsite(ctx context.Context, identity, siteURL, text string) ChatResult {
	endpoint := c.baseURL + "/chat-with-website/"

	var failures []string
	for _, shape := range websiteShapes {
		req, err := newShapedRequest(ctx, endpoint, shape, identity, siteURL, text)
		if err != nil {
			failures = append(failures, shape.Name+": "+err.Error())
			continue
		}

		resp, err := c.do(ctx, req)
		if err != nil {
			failures = append(failures, shape.Name+": "+err.Error())
			continue
		}
		raw, err := readBody(resp)
		if err != nil {
			failures = append(failures, shape.Name+": "+err.Error())
			continue
		}

		// First HTTP success wins; later variants are never consulted,
		// even if this payload turns out to be malformed.
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			c.logger.Debug("website chat variant succeeded",
				zap.String("variant", shape.Name))
			return parseChatBody(raw)
		}
		failures = append(failures, shape.Name+": "+errorFromBody(resp.StatusCode, raw))
	}

	c.logger.Warn("all website chat variants failed",
		zap.String("url", siteURL),
		zap.Strings("attempts", failures))
	return failedChat("The website chat service is unavailable right now. " +
		"(" + strings.Join(failures, "; ") + ")")
}

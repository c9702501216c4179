// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// =============================================================================
// REMOTE CHAT HISTORY
// =============================================================================

// FetchHistory retrieves the identity's role-tagged transcript from the
// backend.
//
// The fetch is bounded by HistoryTimeout. Timeouts, transport failures,
// non-2xx statuses, and unparseable bodies (HTML error pages included)
// all yield an empty history: a missing transcript is an ordinary
// first-load outcome, never an alarm.
func (c *Client) FetchHistory(ctx context.Context, identity string) []HistoryEntry {
	ctx, cancel := context.WithTimeout(ctx, HistoryTimeout)
	defer cancel()

	endpoint := c.baseURL + "/chat-history/" + url.PathEscape(identity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		c.logger.Debug("history fetch failed, treating as empty", zap.Error(err))
		return nil
	}
	raw, err := readBody(resp)
	if err != nil {
		c.logger.Debug("history read failed, treating as empty", zap.Error(err))
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("history fetch returned non-success, treating as empty",
			zap.Int("status", resp.StatusCode))
		return nil
	}

	var body struct {
		History []HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Debug("unparseable history response, treating as empty", zap.Error(err))
		return nil
	}
	return body.History
}

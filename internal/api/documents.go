// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// =============================================================================
// DOCUMENT UPLOAD
// =============================================================================

// UploadFile is the payload handed to UploadDocument after validation.
type UploadFile struct {
	Name string
	Kind string // "pdf" or "csv"
	Data []byte
}

// UploadDocument sends a validated file to the kind-appropriate upload
// endpoint. HTTP 500 and 413 translate to specific human-readable error
// kinds; everything else gets the generic status message.
func (c *Client) UploadDocument(ctx context.Context, file UploadFile, identity string) UploadResult {
	var endpoint string
	fields := map[string]string{"email": identity}

	switch file.Kind {
	case "pdf":
		endpoint = c.baseURL + "/upload-pdf/"
	case "csv":
		endpoint = c.baseURL + "/upload-csv/"
		fields["filename"] = file.Name
		fields["prompt"] = ""
	default:
		return UploadResult{Error: "Unsupported file type."}
	}

	body, contentType, err := encodeMultipart(fields, "file", file.Name, file.Data)
	if err != nil {
		return UploadResult{Error: connectivityMessage}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return UploadResult{Error: connectivityMessage}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(ctx, req)
	if err != nil {
		return UploadResult{Error: connectivityMessage}
	}
	raw, err := readBody(resp)
	if err != nil {
		return UploadResult{Error: connectivityMessage}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return UploadResult{OK: true, Kind: file.Kind, StoredName: storedName(raw, file.Name)}
	case resp.StatusCode == http.StatusInternalServerError:
		return UploadResult{Error: fmt.Sprintf(
			"%s could not be processed. The file may be malformed or too complex.", file.Name)}
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return UploadResult{Error: fmt.Sprintf(
			"%s exceeds the server's size limit.", file.Name)}
	default:
		return UploadResult{Error: errorFromBody(resp.StatusCode, raw)}
	}
}

// storedName extracts the server-assigned filename, defaulting to the
// original name when the response does not carry one.
func storedName(raw []byte, original string) string {
	var body struct {
		Filename   string `json:"filename"`
		StoredName string `json:"stored_name"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if name := firstNonEmpty(body.StoredName, body.Filename); name != "" {
			return name
		}
	}
	return original
}

// =============================================================================
// DOCUMENT CATALOG
// =============================================================================

// FetchCatalog lists the identity's uploaded documents in backend order.
//
// A 5xx from the listing service reads as an empty catalog rather than an
// error: a cold listing service should not alarm the user. Unparseable
// bodies degrade to empty the same way.
func (c *Client) FetchCatalog(ctx context.Context, identity string) ([]string, error) {
	endpoint := c.baseURL + "/get-all-documents/?email=" + url.QueryEscape(identity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document catalog: %w", err)
	}
	raw, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read document catalog: %w", err)
	}

	if resp.StatusCode >= 500 {
		c.logger.Info("catalog listing unavailable, treating as empty",
			zap.Int("status", resp.StatusCode))
		return []string{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("document catalog: %s", statusMessage(resp.StatusCode))
	}

	var body struct {
		Documents []string `json:"documents"`
		Files     []string `json:"files"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Warn("unparseable catalog response, treating as empty", zap.Error(err))
		return []string{}, nil
	}
	if len(body.Documents) > 0 {
		return body.Documents, nil
	}
	if body.Files == nil {
		return []string{}, nil
	}
	return body.Files, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// DeleteDocument removes one uploaded document. Failures are reported,
// never retried.
func (c *Client) DeleteDocument(ctx context.Context, identity, filename string) error {
	endpoint := c.baseURL + "/delete-file/?file_name=" + url.QueryEscape(filename) +
		"&email=" + url.QueryEscape(identity)
	return c.postExpectOK(ctx, endpoint, "delete document")
}

// DeleteAllDocuments removes every uploaded document for the identity.
func (c *Client) DeleteAllDocuments(ctx context.Context, identity string) error {
	endpoint := c.baseURL + "/delete-all-files/?email=" + url.QueryEscape(identity)
	return c.postExpectOK(ctx, endpoint, "delete all documents")
}

// DeleteChatHistory clears the identity's server-side transcript.
func (c *Client) DeleteChatHistory(ctx context.Context, identity string) error {
	endpoint := c.baseURL + "/delete-chat-history/?email=" + url.QueryEscape(identity)
	return c.postExpectOK(ctx, endpoint, "delete chat history")
}

// postExpectOK issues a bare POST and maps non-2xx to an error.
func (c *Client) postExpectOK(ctx context.Context, endpoint, op string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	raw, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to %s: %s", op, errorFromBody(resp.StatusCode, raw))
	}
	return nil
}

// =============================================================================
// KNOWLEDGE BASE FLAG
// =============================================================================

// SetKnowledgeBase toggles the backend's single knowledge-base context
// flag for the identity. Mode transitions call it best-effort to keep the
// backend consistent with the client's exclusive selection.
func (c *Client) SetKnowledgeBase(ctx context.Context, identity string, activate bool) error {
	endpoint := c.baseURL + "/set-knowledge-base/"

	payload, err := json.Marshal(map[string]any{
		"activate": activate,
		"email":    identity,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to set knowledge base flag: %w", err)
	}
	raw, err := readBody(resp)
	if err != nil {
		return fmt.Errorf("failed to set knowledge base flag: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("failed to set knowledge base flag: %s", errorFromBody(resp.StatusCode, raw))
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
)

// =============================================================================
// REQUEST SHAPES
// =============================================================================

// Encoding selects the transport encoding of a request shape.
type Encoding int

const (
	EncodingMultipart Encoding = iota
	EncodingJSON
)

// String returns a short label for logging.
func (e Encoding) String() string {
	if e == EncodingMultipart {
		return "multipart"
	}
	return "json"
}

// Shape is one request-shape variant: a transport encoding plus a field
// layout, tried against an endpoint whose exact contract is not reliably
// known. Shapes are data, not control flow; new variants are added to the
// ordered list, never to the retry loop.
type Shape struct {
	// Name labels the variant in logs and aggregate errors.
	Name string

	// Encoding is multipart or JSON.
	Encoding Encoding

	// Fields maps wire field names to values.
	Fields func(identity, url, text string) map[string]string
}

// websiteShapes is the fixed-order variant list for the website-chat
// endpoint. The backend's accepted field names are guesses, so each
// variant is tried exactly once and the first HTTP success wins; this is
// a compatibility shim, not retry-for-resilience.
var websiteShapes = []Shape{
	{
		Name:     "multipart email/url/prompt",
		Encoding: EncodingMultipart,
		Fields: func(identity, url, text string) map[string]string {
			return map[string]string{"email": identity, "url": url, "prompt": text}
		},
	},
	{
		Name:     "multipart email/website/query",
		Encoding: EncodingMultipart,
		Fields: func(identity, url, text string) map[string]string {
			return map[string]string{"email": identity, "website": url, "query": text}
		},
	},
	{
		Name:     "json email/url/prompt",
		Encoding: EncodingJSON,
		Fields: func(identity, url, text string) map[string]string {
			return map[string]string{"email": identity, "url": url, "prompt": text}
		},
	},
	{
		Name:     "json email/website/query",
		Encoding: EncodingJSON,
		Fields: func(identity, url, text string) map[string]string {
			return map[string]string{"email": identity, "website": url, "query": text}
		},
	},
}

// =============================================================================
// BODY ENCODERS
// =============================================================================

// encodeFields builds a request body for the given encoding and fields.
// Returns the body and the Content-Type header value.
func encodeFields(enc Encoding, fields map[string]string) (*bytes.Buffer, string, error) {
	switch enc {
	case EncodingMultipart:
		return encodeMultipart(fields, "", "", nil)
	default:
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(fields); err != nil {
			return nil, "", fmt.Errorf("failed to encode json body: %w", err)
		}
		return buf, "application/json", nil
	}
}

// encodeMultipart builds a multipart form body. When fileField is
// non-empty a file part is added with the given name and contents.
func encodeMultipart(fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %q: %w", k, err)
		}
	}

	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(fileData); err != nil {
			return nil, "", fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// newShapedRequest builds an HTTP POST for one shape variant.
func newShapedRequest(ctx context.Context, url string, shape Shape, identity, siteURL, text string) (*http.Request, error) {
	body, contentType, err := encodeFields(shape.Encoding, shape.Fields(identity, siteURL, text))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth is the thin client for the external auth collaborator.
//
// The chat core never implements authentication; it only reads the
// resolved identity this package provides and asks the user to sign in
// when it is absent.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotSignedIn indicates no stored credentials were found.
	ErrNotSignedIn = errors.New("not signed in: run 'docchat login'")

	// ErrBadCredentials indicates the backend rejected the sign-in.
	ErrBadCredentials = errors.New("invalid email or password")
)

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials is the persisted identity record.
type Credentials struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Token       string    `json:"token,omitempty"`
	SignedInAt  time.Time `json:"signed_in_at"`
}

// credentialsPath returns the credentials file location inside dir.
func credentialsPath(dir string) string {
	return filepath.Join(dir, "credentials.json")
}

// LoadCredentials reads the stored identity from dir. A missing or
// corrupt file reads as not signed in.
func LoadCredentials(dir string) (*Credentials, error) {
	raw, err := os.ReadFile(credentialsPath(dir))
	if err != nil {
		return nil, ErrNotSignedIn
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil || creds.Email == "" {
		return nil, ErrNotSignedIn
	}
	return &creds, nil
}

// SaveCredentials persists the identity with owner-only permissions.
// The write is atomic so a crash cannot leave half a token on disk.
func SaveCredentials(dir string, creds *Credentials) error {
	raw, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(credentialsPath(dir), raw, 0600)
}

// ClearCredentials signs the user out locally.
func ClearCredentials(dir string) {
	os.Remove(credentialsPath(dir))
}

// =============================================================================
// AUTH CLIENT
// =============================================================================

// Client talks to the backend's signin/signup endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an auth client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// authResponse is the backend's reply to signin/signup.
type authResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	Detail      string `json:"detail"`
}

// SignIn exchanges email/password for credentials.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := c.post(ctx, "/signin", email, password)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Email:       email,
		DisplayName: resp.DisplayName,
		Token:       resp.Token,
		SignedInAt:  time.Now(),
	}, nil
}

// SignUp registers a new account and signs it in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	resp, err := c.post(ctx, "/signup", email, password)
	if err != nil {
		return nil, err
	}
	return &Credentials{
		Email:       email,
		DisplayName: resp.DisplayName,
		Token:       resp.Token,
		SignedInAt:  time.Now(),
	}, nil
}

// post issues one auth request.
func (c *Client) post(ctx context.Context, path, email, password string) (*authResponse, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach the auth service: %w", err)
	}
	defer resp.Body.Close()

	var body authResponse
	json.NewDecoder(resp.Body).Decode(&body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return &body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrBadCredentials
	default:
		if body.Detail != "" {
			return nil, errors.New(body.Detail)
		}
		return nil, fmt.Errorf("auth service returned status %d", resp.StatusCode)
	}
}

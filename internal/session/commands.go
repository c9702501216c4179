// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/upload"
)

// =============================================================================
// MODE COMMANDS
// =============================================================================

// ActivateKnowledgeBase switches to KnowledgeBase mode.
func (s *Session) ActivateKnowledgeBase() {
	s.mu.Lock()
	s.machine.ActivateKnowledgeBase()
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// ActivateDataset switches to Csv mode against a named dataset. The
// dataset must already be in the catalog.
func (s *Session) ActivateDataset(name string) error {
	s.mu.Lock()
	err := s.machine.ActivateDataset(name)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.persist()
	s.notify()
	return nil
}

// ActivateLatestDataset switches to Csv mode against the most recently
// uploaded dataset.
func (s *Session) ActivateLatestDataset() error {
	s.mu.Lock()
	err := s.machine.ActivateLatestDataset()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.persist()
	s.notify()
	return nil
}

// ActivateWebsite switches to Website mode against a URL, adding it to
// the catalog. The URL is only validated for non-emptiness here; a bad
// site surfaces as a chat failure and is evicted then.
func (s *Session) ActivateWebsite(url string) error {
	s.mu.Lock()
	err := s.machine.ActivateWebsite(url)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.persist()
	s.notify()
	return nil
}

// Deactivate drops back to Plain mode, keeping catalogs and pointers.
func (s *Session) Deactivate() {
	s.mu.Lock()
	s.machine.Deactivate()
	s.mu.Unlock()
	s.persist()
	s.notify()
}

// =============================================================================
// UPLOADS
// =============================================================================

// UploadPath validates and uploads a local file through the attachment
// path, appends the attachment turn to the log, and announces the upload
// on the bus. The returned error is for the caller's status line; the log
// already carries a user-visible outcome either way.
func (s *Session) UploadPath(ctx context.Context, path string) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == "" {
		return fmt.Errorf("sign in before uploading")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)

	header := data
	if len(header) > upload.MagicLen {
		header = header[:upload.MagicLen]
	}
	cand := upload.Candidate{Filename: name, Size: int64(len(data)), Header: header}
	if err := upload.Validate(cand, upload.PathAttachment); err != nil {
		return err
	}

	result := s.client.UploadDocument(ctx, api.UploadFile{
		Name: name,
		Kind: cand.Kind(),
		Data: data,
	}, identity)

	if !result.OK {
		s.mu.Lock()
		s.log.Append(model.NewBotMessage(result.Error))
		s.mu.Unlock()
		s.persist()
		s.notify()
		return nil
	}

	stored := result.StoredName
	if stored == "" {
		stored = name
	}

	attachment := &model.FileAttachment{
		Filename: stored,
		Kind:     model.FileKind(result.Kind),
	}
	turn := model.NewUserMessage("Uploaded " + stored)
	turn.FileAttachment = attachment

	s.mu.Lock()
	s.log.Append(turn)
	s.mu.Unlock()

	if s.events != nil {
		s.events.PublishDocumentUploaded(stored, result.Kind)
	} else if result.Kind == "csv" {
		// No bus wired (tests, headless): apply the catalog effect
		// directly.
		s.mu.Lock()
		s.machine.AddDataset(stored)
		if err := s.machine.ActivateDataset(stored); err != nil {
			s.logger.Warn("could not activate uploaded dataset", zap.Error(err))
		}
		s.mu.Unlock()
	}

	s.persist()
	s.notify()
	return nil
}

// DeleteDocument removes a backend document and announces the deletion.
func (s *Session) DeleteDocument(ctx context.Context, filename string) error {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == "" {
		return fmt.Errorf("sign in first")
	}

	if err := s.client.DeleteDocument(ctx, identity, filename); err != nil {
		return err
	}

	if s.events != nil {
		s.events.PublishDocumentDeleted(filename)
	} else {
		s.mu.Lock()
		s.machine.RemoveDataset(filename)
		s.mu.Unlock()
	}
	s.persist()
	s.notify()
	return nil
}

// =============================================================================
// RESET AND SIGN-OUT
// =============================================================================

// Reset clears the conversation: the in-memory log, the durable
// snapshot, the history-attempted marker, and the remote transcript
// (best-effort). Mode state is released per content kind — a context
// whose content was present in the transcript being cleared is still
// meaningfully populated and survives; one with no supporting content is
// dropped. Catalogs always survive.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	identity := s.identity

	hadPDF := s.log.HasPDFContent()
	hadCSV := s.log.HasCSVContent()
	hadWebsite := s.log.HasWebsiteContent()
	s.log.Clear()
	s.machine.ChatReset(hadPDF, hadCSV, hadWebsite)
	s.inFlight = false
	s.mu.Unlock()

	if identity != "" && s.adapter != nil {
		s.adapter.Remove(s.adapter.Durable(), store.UserKey(store.KeyPrefixChatLog, identity))
		s.adapter.Remove(s.adapter.Session(), store.UserKey(store.KeyPrefixHistoryTried, identity))

		if s.client != nil {
			if err := s.client.DeleteChatHistory(ctx, identity); err != nil {
				s.logger.Warn("remote transcript delete failed", zap.Error(err))
			}
		}
	}
	s.persist()
	s.notify()
}

// SignOut forgets the identity and every trace of its state: log, mode
// machine, and both storage tiers.
func (s *Session) SignOut() {
	s.mu.Lock()
	identity := s.identity
	s.identity = ""
	s.displayName = ""
	s.log.Clear()
	s.machine.SignOut()
	s.inFlight = false
	s.mu.Unlock()

	if identity != "" && s.adapter != nil {
		for _, tier := range []store.Tier{s.adapter.Durable(), s.adapter.Session()} {
			for _, prefix := range []string{
				store.KeyPrefixChatLog,
				store.KeyPrefixHistoryTried,
				store.KeyPrefixKnownDatasets,
				store.KeyPrefixKnownWebsites,
				store.KeyPrefixActiveDataset,
				store.KeyPrefixActiveWebsite,
			} {
				s.adapter.Remove(tier, store.UserKey(prefix, identity))
			}
		}
	}
	s.notify()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/upload"
)

// =============================================================================
// MOUNT
// =============================================================================

// Mount restores per-identity state on startup. Restore order: the
// durable log snapshot wins; only when no snapshot exists is the remote
// transcript fetched, and at most once per process run. Mode pointers and
// catalogs are rehydrated but the active mode always starts Plain — a
// stateful mode requires a deliberate action this run.
func (s *Session) Mount(ctx context.Context) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == "" || s.adapter == nil {
		return
	}

	durable := s.adapter.Durable()
	sessionTier := s.adapter.Session()

	var snap model.Snapshot
	restored := s.adapter.GetJSON(durable, store.UserKey(store.KeyPrefixChatLog, identity), &snap)

	// The remote transcript is a fallback, consulted at most once per
	// run per identity. The marker lives in the session tier; Reset
	// clears it along with the remote transcript itself.
	markerKey := store.UserKey(store.KeyPrefixHistoryTried, identity)

	if restored {
		s.mu.Lock()
		s.log.Restore(snap)
		s.mu.Unlock()
		s.adapter.SetJSON(sessionTier, markerKey, true)
	} else {
		var tried bool
		if !s.adapter.GetJSON(sessionTier, markerKey, &tried) || !tried {
			s.adapter.SetJSON(sessionTier, markerKey, true)
			s.restoreFromHistory(ctx, identity)
		}
	}

	s.hydrateMode(identity)
	s.persist()
	s.notify()
}

// restoreFromHistory rebuilds the log from the remote transcript. Any
// fetch failure leaves the log empty; the transcript is a convenience,
// not a source of truth.
func (s *Session) restoreFromHistory(ctx context.Context, identity string) {
	if s.client == nil {
		return
	}
	entries := s.client.FetchHistory(ctx, identity)
	if len(entries) == 0 {
		return
	}

	// Each user entry is paired with the assistant entry that
	// immediately follows it, if any. Assistant entries with no
	// preceding user entry are dropped.
	s.mu.Lock()
	defer s.mu.Unlock()
	restored := 0
	for i := 0; i < len(entries); i++ {
		if entries[i].Role != "user" {
			continue
		}
		s.log.Append(model.NewUserMessage(entries[i].Content))
		restored++
		if i+1 < len(entries) && entries[i+1].Role == "assistant" {
			s.log.Append(model.NewBotMessage(entries[i+1].Content))
			restored++
			i++
		}
	}
	s.logger.Info("restored remote transcript",
		zap.Int("entries", restored))
}

// hydrateMode restores catalogs and pointers from the durable tier.
func (s *Session) hydrateMode(identity string) {
	durable := s.adapter.Durable()

	var datasets, websites []string
	var activeDataset, activeWebsite string
	s.adapter.GetJSON(durable, store.UserKey(store.KeyPrefixKnownDatasets, identity), &datasets)
	s.adapter.GetJSON(durable, store.UserKey(store.KeyPrefixKnownWebsites, identity), &websites)
	s.adapter.GetJSON(durable, store.UserKey(store.KeyPrefixActiveDataset, identity), &activeDataset)
	s.adapter.GetJSON(durable, store.UserKey(store.KeyPrefixActiveWebsite, identity), &activeWebsite)

	s.mu.Lock()
	s.machine.Hydrate(datasets, websites, activeDataset, activeWebsite)
	s.mu.Unlock()
}

// RefreshCatalog reconciles the local dataset catalog with the backend's
// document list. Backend outages leave the local catalog untouched.
func (s *Session) RefreshCatalog(ctx context.Context) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == "" || s.client == nil {
		return
	}

	docs, err := s.client.FetchCatalog(ctx, identity)
	if err != nil {
		s.logger.Warn("catalog refresh failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	for _, name := range docs {
		if (upload.Candidate{Filename: name}).Kind() == "csv" {
			s.machine.AddDataset(name)
		}
	}
	s.mu.Unlock()
	s.persist()
	s.notify()
}

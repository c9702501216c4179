// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides the two-tier persistence adapter.
package store

import (
	"encoding/json"

	"go.uber.org/zap"
)

// =============================================================================
// TIER CONTRACT
// =============================================================================

// Tier is a key-value storage tier behind a uniform get/set/remove
// contract. Implementations: SQLiteTier (durable, survives restarts) and
// MemoryTier (session-scoped, gone when the process exits).
type Tier interface {
	// Get returns the raw value for key and whether it was present.
	Get(key string) ([]byte, bool)

	// Set stores the raw value for key, overwriting any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string)
}

// =============================================================================
// ADAPTER
// =============================================================================

// Adapter wraps the durable and session tiers behind a JSON encode/decode
// boundary. Corrupt or unparseable stored values degrade to "absent" and
// never propagate as errors.
type Adapter struct {
	durable Tier
	session Tier
	logger  *zap.Logger
}

// NewAdapter creates an adapter over the given tiers.
func NewAdapter(durable, session Tier, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{durable: durable, session: session, logger: logger}
}

// Durable returns the durable tier.
func (a *Adapter) Durable() Tier {
	return a.durable
}

// Session returns the session-scoped tier.
func (a *Adapter) Session() Tier {
	return a.session
}

// GetJSON decodes the value stored under key in the given tier into v.
// It returns false when the key is absent or the stored value fails to
// decode; a corrupt value is removed so it cannot keep failing.
func (a *Adapter) GetJSON(tier Tier, key string, v any) bool {
	raw, ok := tier.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		a.logger.Warn("discarding corrupt stored value",
			zap.String("key", key),
			zap.Error(err))
		tier.Remove(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key in the given tier. The write
// is best-effort: failures are logged, not returned, because no caller of
// the snapshot path can do anything useful with them.
func (a *Adapter) SetJSON(tier Tier, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		a.logger.Warn("failed to encode value for storage",
			zap.String("key", key),
			zap.Error(err))
		return
	}
	if err := tier.Set(key, raw); err != nil {
		a.logger.Warn("failed to write stored value",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Remove deletes key from the given tier.
func (a *Adapter) Remove(tier Tier, key string) {
	tier.Remove(key)
}

// =============================================================================
// KEY NAMESPACING
// =============================================================================

// Storage key prefixes. Every per-identity key is namespaced with the
// user's email so two identities never read each other's state.
const (
	KeyPrefixChatLog       = "chat_log"
	KeyPrefixHistoryTried  = "history_tried"
	KeyPrefixKnownDatasets = "known_datasets"
	KeyPrefixKnownWebsites = "known_websites"
	KeyPrefixActiveDataset = "active_dataset"
	KeyPrefixActiveWebsite = "active_website"
)

// UserKey builds a user-namespaced storage key.
func UserKey(prefix, email string) string {
	return prefix + ":" + email
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"github.com/patrickmn/go-cache"
)

// =============================================================================
// SESSION TIER (IN-MEMORY)
// =============================================================================

// MemoryTier is the session-scoped storage tier. Values live for the
// lifetime of the process only, mirroring tab-scoped session storage.
type MemoryTier struct {
	cache *cache.Cache
}

// NewMemoryTier creates an empty session tier.
func NewMemoryTier() *MemoryTier {
	// No expiration, no janitor: entries live until removed or exit.
	return &MemoryTier{cache: cache.New(cache.NoExpiration, 0)}
}

// Get returns the stored value for key.
func (t *MemoryTier) Get(key string) ([]byte, bool) {
	if x, found := t.cache.Get(key); found {
		return x.([]byte), true
	}
	return nil, false
}

// Set stores value under key.
func (t *MemoryTier) Set(key string, value []byte) error {
	t.cache.Set(key, value, cache.NoExpiration)
	return nil
}

// Remove deletes key.
func (t *MemoryTier) Remove(key string) {
	t.cache.Delete(key)
}

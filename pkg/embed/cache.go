// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package embed

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache memoizes embeddings keyed by sha256(model || text). Re-ingesting
// an unchanged corpus then costs zero provider calls. Bounded: when full,
// an arbitrary existing entry is evicted per insert, which is enough for
// the streaming access pattern of ingestion.
type Cache struct {
	mu      sync.Mutex
	entries map[string][]float32
	max     int
}

// NewCache creates a cache holding at most max vectors. max <= 0 means a
// default of 65536.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = 65536
	}
	return &Cache{entries: make(map[string][]float32), max: max}
}

// CacheKey derives the content-addressed key for one text under a model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for a key, if present.
func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[key]
	return vec, ok
}

// Put stores a vector under a key.
func (c *Cache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.max {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = vec
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

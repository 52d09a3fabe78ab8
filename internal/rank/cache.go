// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/assembly-engine/pkg/types"
)

// Entry is one cached ranked order: the full pre-slice ordering of a
// candidate set, with the scores and sources the ranker assigned.
type Entry struct {
	IDs     []int64            `json:"ids"`
	Scores  []float64          `json:"scores"`
	Sources []types.RankSource `json:"sources"`
}

// Cache stores ranked orders keyed by candidate-set identity and query.
// Implementations must tolerate concurrent use. A failing cache degrades
// to recompute; it never surfaces an error to the ranking path.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Set(ctx context.Context, key string, e *Entry, ttl time.Duration)
}

// CacheKey derives the cache key from the sorted candidate ids and the
// query, so identical sets rank identically regardless of retrieval order.
func CacheKey(candidates []types.Candidate, query string) string {
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for _, id := range ids {
		fmt.Fprintf(&b, "%d,", id)
	}
	b.WriteString("|")
	b.WriteString(query)

	sum := sha256.Sum256([]byte(b.String()))
	return "rank:" + hex.EncodeToString(sum[:])
}

// MemoryCache is the default in-process cache: a TTL map with a size cap
// and oldest-entry eviction.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
}

type memoryEntry struct {
	entry   *Entry
	expires time.Time
}

// NewMemoryCache creates a memory cache holding at most maxEntries
// ranked orders. A non-positive cap defaults to 1000.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &MemoryCache{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
	}
}

// Get returns the cached entry for key if it has not expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.entry, true
}

// Set stores the entry, evicting the soonest-expiring one at capacity.
func (c *MemoryCache) Set(_ context.Context, key string, e *Entry, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	c.entries[key] = &memoryEntry{
		entry:   e,
		expires: time.Now().Add(ttl),
	}
}

func (c *MemoryCache) evictOldest() {
	var oldestKey string
	var oldestExpiry time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.expires.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = e.expires
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

package searcher

import (
	"fmt"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/launchsearch/pkg/types"
)

const shortcutCacheSize = 256

// cacheEntry holds the shortcuts of one owner app with expiration time
type cacheEntry struct {
	shortcuts []types.ShortcutRef
	expiresAt time.Time
}

// shortcutCache keeps recent ShortcutProvider answers per owner key.
// A zero TTL disables caching. The TTL follows the live settings through setTTL.
type shortcutCache struct {
	ttl   time.Duration
	cache *lru.Cache[string, *cacheEntry]
	mu    sync.RWMutex
}

func newShortcutCache(size int, ttl time.Duration) *shortcutCache {
	cache, err := lru.New[string, *cacheEntry](size)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	return &shortcutCache{ttl: ttl, cache: cache}
}

// setTTL switches to ttl. Entries stored under a different TTL are dropped.
func (c *shortcutCache) setTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl == ttl {
		return
	}
	c.ttl = ttl
	c.cache.Purge()
}

func (c *shortcutCache) get(owner string) ([]types.ShortcutRef, bool) {
	now := time.Now()

	c.mu.RLock()
	if c.ttl <= 0 {
		c.mu.RUnlock()
		return nil, false
	}
	entry, found := c.cache.Get(owner)
	if !found {
		c.mu.RUnlock()
		return nil, false
	}
	if now.After(entry.expiresAt) {
		c.mu.RUnlock()

		c.mu.Lock()
		c.cache.Remove(owner)
		c.mu.Unlock()
		return nil, false
	}
	shortcuts := slices.Clone(entry.shortcuts)
	c.mu.RUnlock()

	return shortcuts, true
}

func (c *shortcutCache) add(owner string, shortcuts []types.ShortcutRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ttl <= 0 {
		return
	}
	c.cache.Add(owner, &cacheEntry{
		shortcuts: slices.Clone(shortcuts),
		expiresAt: time.Now().Add(c.ttl),
	})
}

// purge drops every cached entry
func (c *shortcutCache) purge() {
	c.mu.Lock()
	c.cache.Purge()
	c.mu.Unlock()
}

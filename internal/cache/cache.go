package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache is a generic time-boxed key→value store. Reads validate expiry
// before returning; expired entries are never served. The background
// janitor is disabled — the scheduler's cleanup loop owns eviction
// timing through SweepExpired.
type Cache struct {
	name string
	c    *gocache.Cache
}

// New creates a named cache. Entries carry their own TTL.
func New(name string) *Cache {
	return &Cache{name: name, c: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the value for key, or false if absent or expired.
func (c *Cache) Get(key string) (any, bool) {
	return c.c.Get(key)
}

// Set stores value under key with the given TTL.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.c.Set(key, value, ttl)
}

// Delete removes key. A no-op if absent.
func (c *Cache) Delete(key string) {
	c.c.Delete(key)
}

// Keys returns every live (non-expired) key.
func (c *Cache) Keys() []string {
	items := c.c.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// DeleteByPrefix removes every live key with the given prefix and
// returns how many were removed. Used to invalidate all cached entries
// for one connection id at once.
func (c *Cache) DeleteByPrefix(prefix string) int {
	removed := 0
	for _, k := range c.Keys() {
		if strings.HasPrefix(k, prefix) {
			c.c.Delete(k)
			removed++
		}
	}
	return removed
}

// SweepExpired evicts entries past their TTL and returns the count.
func (c *Cache) SweepExpired() int {
	before := c.c.ItemCount()
	c.c.DeleteExpired()
	return before - c.c.ItemCount()
}

// Len returns the number of stored entries, expired ones included
// until the next sweep.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}

package netstatus

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// fieldEntry is one per-field cache record: a value plus the time it was
// inserted, used to compute freshness against that field's TTL (spec §4.10).
type fieldEntry struct {
	value     any
	insertedAt time.Time
}

// fieldCache is a small TTL-aware cache over a fixed field set (nodes,
// version, epoch, performance, votes). An LRU bound sits under the TTL
// policy — five keys never evicts in practice, but this reuses the same
// bounded-cache primitive the Pipeline Orchestrator uses for its result
// cache rather than hand-rolling a bare map, per SPEC_FULL.md's domain-stack
// wiring table.
type fieldCache struct {
	mu  sync.RWMutex
	lru *lru.Cache[string, fieldEntry]
}

func newFieldCache() *fieldCache {
	c, _ := lru.New[string, fieldEntry](16)
	return &fieldCache{lru: c}
}

// get returns the cached value and whether it is still within ttl.
func (c *fieldCache) get(key string, ttl time.Duration) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return entry.value, time.Since(entry.insertedAt) < ttl
}

// getStale returns the cached value regardless of freshness, for the
// timeout/error fallback path.
func (c *fieldCache) getStale(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return entry.value, true
}

func (c *fieldCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, fieldEntry{value: value, insertedAt: time.Now()})
}

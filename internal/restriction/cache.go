package restriction

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// statusCache is a process-local TTL cache of restriction statuses, keyed by
// tenant. Entries may be up to one TTL stale, which the gate accepts by
// design note. Concurrent writers are last-writer-wins.
type statusCache struct {
	clock quartz.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	status    *Status
	expiresAt time.Time
}

func newStatusCache(clock quartz.Clock, ttl time.Duration) *statusCache {
	return &statusCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *statusCache) get(tenantID string) (*Status, bool) {
	c.mu.RLock()
	e, ok := c.entries[tenantID]
	c.mu.RUnlock()
	if !ok || c.clock.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.status, true
}

func (c *statusCache) set(tenantID string, s *Status) {
	c.mu.Lock()
	c.entries[tenantID] = cacheEntry{status: s, expiresAt: c.clock.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// invalidate drops the tenant's cached status so the next read recomputes.
func (c *statusCache) invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

// Package dedupe tracks recently written paper ids so the ingest worker can
// skip rewriting a paper it has just stored. Rewrites are harmless (entry
// keys are stable), this only saves store round-trips on noisy streams.
package dedupe

import (
	"sync"
	"time"
)

type stamped struct {
	id string
	at time.Time
}

// Cache is a fixed-capacity set of paper ids with a TTL. Safe for concurrent
// use.
type Cache struct {
	mu       sync.Mutex
	written  map[string]time.Time
	order    []stamped
	capacity int
	ttl      time.Duration
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		written:  make(map[string]time.Time, capacity),
		order:    make([]stamped, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Seen reports whether the paper id was recorded inside the ttl window. It
// does not record the id; use Record after a successful write.
func (c *Cache) Seen(id string) bool {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	at, ok := c.written[id]
	return ok && now.Sub(at) <= c.ttl
}

// Record notes that the paper's entries were written.
func (c *Cache) Record(id string) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.written[id] = now
	c.order = append(c.order, stamped{id: id, at: now})
	c.evict(now)
}

// evict drops expired ids and, when over capacity, the oldest ones.
func (c *Cache) evict(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.written) > c.capacity || c.order[0].at.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// A newer Record for the same id keeps it alive.
		if at, ok := c.written[oldest.id]; ok && at == oldest.at {
			delete(c.written, oldest.id)
		}
	}
}

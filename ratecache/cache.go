// Package ratecache provides a bounded in-memory TTL cache and request
// deduplicator for carrier rate lookups.
package ratecache

import (
	"sync"
	"time"

	"rate-analysis-service/pkg/clock"
)

const (
	// DefaultTTL is applied when Set is called with a non-positive TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries bounds the cache size unless overridden.
	DefaultMaxEntries = 1000
)

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	MaxEntries int
	DefaultTTL time.Duration
	Clock      clock.Clock
}

// Stats reports cumulative cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type entry[V any] struct {
	value    V
	storedAt time.Time
	ttl      time.Duration
}

type orderRec struct {
	key      string
	storedAt time.Time
}

// Cache stores values with per-entry TTLs behind a hard size bound.
// Expired entries are purged lazily on access and swept on every write;
// when the cache is still over capacity after the sweep, the oldest
// entries by insertion timestamp are evicted first. Eviction is FIFO by
// age, deliberately not LRU.
type Cache[V any] struct {
	mu         sync.Mutex
	clk        clock.Clock
	maxEntries int
	defaultTTL time.Duration
	items      map[string]entry[V]
	order      []orderRec
	stats      Stats
}

// New constructs a Cache with the given options.
func New[V any](opts Options) *Cache[V] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.SystemClock{}
	}
	return &Cache[V]{
		clk:        opts.Clock,
		maxEntries: opts.MaxEntries,
		defaultTTL: opts.DefaultTTL,
		items:      make(map[string]entry[V]),
	}
}

// Get returns the cached value if present and unexpired. An expired entry
// is purged on the spot and reported as a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	if c.expired(e, c.clk.Now()) {
		delete(c.items, key)
		c.stats.Misses++
		return zero, false
	}

	c.stats.Hits++
	return e.value, true
}

// Set stores a value under key. A non-positive ttl applies the default.
// Every write sweeps expired entries and then evicts oldest-first until
// the size bound holds.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	c.items[key] = entry[V]{value: value, storedAt: now, ttl: ttl}
	c.order = append(c.order, orderRec{key: key, storedAt: now})

	c.sweep(now)
	c.evictOldest()
}

// Delete removes a cached entry.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len returns the number of live entries, expired ones included until the
// next sweep touches them.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache[V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// sweep drops every expired entry. Caller holds c.mu.
func (c *Cache[V]) sweep(now time.Time) {
	for key, e := range c.items {
		if c.expired(e, now) {
			delete(c.items, key)
		}
	}
}

// evictOldest removes oldest-by-insertion entries until the cache is at or
// under its bound. Order records whose entry was re-set or already removed
// are skipped. Caller holds c.mu.
func (c *Cache[V]) evictOldest() {
	i := 0
	for len(c.items) > c.maxEntries && i < len(c.order) {
		rec := c.order[i]
		i++
		e, ok := c.items[rec.key]
		if !ok || !e.storedAt.Equal(rec.storedAt) {
			continue
		}
		delete(c.items, rec.key)
		c.stats.Evictions++
	}
	c.order = c.order[i:]

	// Compact the order slice once stale records dominate
	if len(c.order) > 2*c.maxEntries {
		live := make([]orderRec, 0, len(c.items))
		for _, rec := range c.order {
			if e, ok := c.items[rec.key]; ok && e.storedAt.Equal(rec.storedAt) {
				live = append(live, rec)
			}
		}
		c.order = live
	}
}

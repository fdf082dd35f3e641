package snapshot

import (
	"sync"

	"mako/domain/orderbook"
)

// BookViewCache memoizes aggregated book views per pair. The engine worker
// invalidates a pair's entry before acknowledging any mutation to that
// pair's book, so a read served from the cache is never older than the
// most recent acknowledged mutation (read-after-write per pair).
type BookViewCache struct {
	mu      sync.Mutex
	entries map[string]orderbook.Aggregated
	// gens counts invalidations per key. A loaded view is stored only if
	// no invalidation landed while the load ran; otherwise the view may
	// predate the mutation that invalidated it and caching it would serve
	// stale reads.
	gens map[string]uint64
}

// NewBookViewCache creates an empty cache.
func NewBookViewCache() *BookViewCache {
	return &BookViewCache{
		entries: make(map[string]orderbook.Aggregated),
		gens:    make(map[string]uint64),
	}
}

// Get returns the cached view for pairKey, or recomputes it via load. The
// result is returned to the caller either way, but it is stored only when
// the key saw no Invalidate between the generation read and the store.
func (c *BookViewCache) Get(pairKey string, load func() (orderbook.Aggregated, error)) (orderbook.Aggregated, error) {
	c.mu.Lock()
	view, ok := c.entries[pairKey]
	gen := c.gens[pairKey]
	c.mu.Unlock()
	if ok {
		return view, nil
	}

	view, err := load()
	if err != nil {
		return orderbook.Aggregated{}, err
	}
	c.mu.Lock()
	if c.gens[pairKey] == gen {
		c.entries[pairKey] = view
	}
	c.mu.Unlock()
	return view, nil
}

// Invalidate drops the cached view for pairKey and marks any load still in
// flight as stale. Must be called before the mutation that made the view
// stale is acknowledged.
func (c *BookViewCache) Invalidate(pairKey string) {
	c.mu.Lock()
	delete(c.entries, pairKey)
	c.gens[pairKey]++
	c.mu.Unlock()
}

package app

import (
	"sync"

	"seedfinder/internal/domain"
)

// AreaCache keeps every rendered area for the life of the queue. Entries are
// never evicted; a forced render may rewrite a key, always with the same grid
// since generation is deterministic.
type AreaCache struct {
	mu      sync.RWMutex
	entries map[string]domain.ColorGrid
}

func NewAreaCache() *AreaCache {
	return &AreaCache{entries: make(map[string]domain.ColorGrid)}
}

func (c *AreaCache) Get(key string) (domain.ColorGrid, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	grid, ok := c.entries[key]
	return grid, ok
}

func (c *AreaCache) Put(key string, grid domain.ColorGrid) {
	c.mu.Lock()
	c.entries[key] = grid
	c.mu.Unlock()
}

func (c *AreaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

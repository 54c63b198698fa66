package remote

import (
	"context"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DetailCache memoizes illustration details for the lifetime of one run.
// Failed lookups are never cached.
type DetailCache struct {
	mu      sync.RWMutex
	details map[int]*Illust
	sf      singleflight.Group
}

// NewDetailCache creates an empty cache.
func NewDetailCache() *DetailCache {
	return &DetailCache{details: make(map[int]*Illust)}
}

// Get returns the cached detail for id.
func (c *DetailCache) Get(id int) (*Illust, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.details[id]
	return d, ok
}

// Put stores a detail. Nil details are ignored.
func (c *DetailCache) Put(d *Illust) {
	if d == nil {
		return
	}
	c.mu.Lock()
	c.details[d.ID] = d
	c.mu.Unlock()
}

// Len returns the number of cached details.
func (c *DetailCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.details)
}

// GetOrFetch returns the cached detail or calls fetch once, even under concurrent callers.
func (c *DetailCache) GetOrFetch(ctx context.Context, id int, fetch func(context.Context, int) (*Illust, error)) (*Illust, error) {
	// Fast path
	if d, ok := c.Get(id); ok {
		return d, nil
	}

	result, err, _ := c.sf.Do(strconv.Itoa(id), func() (interface{}, error) {
		// Double-check after winning the flight
		if d, ok := c.Get(id); ok {
			return d, nil
		}
		d, err := fetch(ctx, id)
		if err != nil {
			return nil, err
		}
		c.Put(d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Illust), nil
}

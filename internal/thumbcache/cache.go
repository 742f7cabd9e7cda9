// Package thumbcache is a bounded in-memory cache of encoded thumbnails,
// keyed by canonical path. It is bounded by total encoded bytes rather
// than entry count, and coalesces concurrent misses for the same path so
// expensive decode work runs at most once.
package thumbcache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is one cached thumbnail.
type Entry struct {
	Data    []byte
	MIME    string
	Created time.Time
}

// Cache holds thumbnails for the duration of one session. Lookup and
// insert are safe under concurrent use for different paths; concurrent
// misses for the same path share a single computation.
type Cache struct {
	budget int64

	mu      sync.Mutex
	entries map[string]Entry
	size    int64

	// gen advances on Clear. An entry produced under an earlier
	// generation is served to its waiters but never stored, so nothing
	// computed before a Clear can reappear after it.
	gen uint64

	group singleflight.Group
}

// New creates a cache bounded by budget total encoded bytes.
func New(budget int64) *Cache {
	return &Cache{
		budget:  budget,
		entries: make(map[string]Entry),
	}
}

// Get returns the cached entry for path, if present. Hits never touch the
// backend serialization queue.
func (c *Cache) Get(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	return entry, ok
}

// GetOrCreate returns the cached entry for path, computing it with fn on a
// miss. Concurrent callers for the same uncached path wait for the first
// caller's in-flight result instead of recomputing; all of them receive
// the same entry. A failed computation is not cached.
func (c *Cache) GetOrCreate(path string, fn func() (Entry, error)) (Entry, error) {
	if entry, ok := c.Get(path); ok {
		return entry, nil
	}

	v, err, _ := c.group.Do(path, func() (any, error) {
		// A racing caller may have completed between our miss and the
		// flight starting.
		if entry, ok := c.Get(path); ok {
			return entry, nil
		}

		gen := c.generation()
		entry, err := fn()
		if err != nil {
			return Entry{}, err
		}
		if entry.Created.IsZero() {
			entry.Created = time.Now()
		}
		c.put(path, entry, gen)
		return entry, nil
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

// Clear drops every entry. Called on disconnect: cached thumbnails are
// only meaningful within the session that produced them.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	c.size = 0
	c.gen++
}

func (c *Cache) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Stats returns current size, budget and entry count.
func (c *Cache) Stats() (size, budget int64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size, c.budget, len(c.entries)
}

// put inserts an entry and evicts least-recently-produced entries until
// the byte budget holds. An entry larger than the whole budget, or one
// produced under a generation that has since been cleared, is served but
// never stored.
func (c *Cache) put(path string, entry Entry, gen uint64) {
	n := int64(len(entry.Data))
	if n > c.budget {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	if old, ok := c.entries[path]; ok {
		c.size -= int64(len(old.Data))
	}
	c.entries[path] = entry
	c.size += n

	for c.size > c.budget {
		if !c.evictOldest() {
			break
		}
	}
}

// evictOldest removes the entry with the earliest production time.
// Must be called with the lock held.
func (c *Cache) evictOldest() bool {
	var oldestPath string
	var oldest time.Time
	found := false

	for p, e := range c.entries {
		if !found || e.Created.Before(oldest) {
			oldest = e.Created
			oldestPath = p
			found = true
		}
	}
	if !found {
		return false
	}

	c.size -= int64(len(c.entries[oldestPath].Data))
	delete(c.entries, oldestPath)
	return true
}

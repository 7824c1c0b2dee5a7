// Package pagecache holds per-path listing results between the store and
// the presentation layer. Entries are either partial pages built by
// strict append-only merging, or complete snapshots. Any mutation drops
// affected entries wholesale; entries are never patched in place.
package pagecache

import (
	"sync"
	"time"

	"github.com/TG-SkyBox/SkyBox/internal/metrics"
	"github.com/TG-SkyBox/SkyBox/internal/vfs"
)

// Entry is one cached listing for a virtual path.
type Entry struct {
	Items              []vfs.SavedItem
	NextOffset         int
	HasMore            bool
	IsCompleteSnapshot bool

	// Version changes whenever the entry is replaced. Callers can use it
	// to tell a fresh entry from a stale one they already rendered.
	Version uint64

	fetchedAt time.Time
}

// Cache is a path-keyed listing cache with TTL expiry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	ttl     time.Duration
	version uint64
}

// New builds a cache. ttl <= 0 disables expiry.
func New(ttl time.Duration) *Cache {
	return &Cache{entries: make(map[string]*Entry), ttl: ttl}
}

// Get returns a copy of the cached entry for path, if present and fresh.
func (c *Cache) Get(path string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[path]
	if !ok || c.expired(e) {
		if ok {
			delete(c.entries, path)
		}
		metrics.RecordPageCacheLookup(false)
		return Entry{}, false
	}
	metrics.RecordPageCacheLookup(true)
	return *e, true
}

// PutPage records a fetched page. When offset continues the cached
// partial entry (offset == prior NextOffset) the page is appended;
// any other offset replaces the entry rather than reordering it.
func (c *Cache) PutPage(path string, offset int, items []vfs.SavedItem, hasMore bool) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	prior, ok := c.entries[path]
	if ok && !c.expired(prior) && !prior.IsCompleteSnapshot && offset == prior.NextOffset && offset > 0 {
		merged := make([]vfs.SavedItem, 0, len(prior.Items)+len(items))
		merged = append(merged, prior.Items...)
		merged = append(merged, items...)
		e := c.newEntry(merged, prior.NextOffset+len(items), hasMore, false)
		c.entries[path] = e
		return *e
	}

	e := c.newEntry(append([]vfs.SavedItem(nil), items...), offset+len(items), hasMore, false)
	c.entries[path] = e
	return *e
}

// PutFull replaces the entry with a complete snapshot; later visits to
// the path skip pagination until the next invalidation.
func (c *Cache) PutFull(path string, items []vfs.SavedItem) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.newEntry(append([]vfs.SavedItem(nil), items...), len(items), false, true)
	c.entries[path] = e
	return *e
}

// Invalidate drops the entries for the given paths.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for _, p := range paths {
		if _, ok := c.entries[p]; ok {
			delete(c.entries, p)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.RecordPageCacheInvalidations(dropped)
	}
}

// InvalidateSubtree drops the entry for path and every entry beneath it.
func (c *Cache) InvalidateSubtree(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + "/"
	dropped := 0
	for k := range c.entries {
		if k == path || len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.RecordPageCacheInvalidations(dropped)
	}
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

func (c *Cache) newEntry(items []vfs.SavedItem, nextOffset int, hasMore, complete bool) *Entry {
	c.version++
	return &Entry{
		Items:              items,
		NextOffset:         nextOffset,
		HasMore:            hasMore,
		IsCompleteSnapshot: complete,
		Version:            c.version,
		fetchedAt:          time.Now(),
	}
}

func (c *Cache) expired(e *Entry) bool {
	return c.ttl > 0 && time.Since(e.fetchedAt) > c.ttl
}

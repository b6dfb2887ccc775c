package render

import (
	"container/list"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LayerKey identifies one rendered layer request.
type LayerKey struct {
	Zones  string
	Mode   string
	Costs  string
	Origin string
}

func (k LayerKey) String() string {
	return strings.Join([]string{k.Zones, k.Mode, k.Costs, k.Origin}, "/")
}

// LayerCache is a concurrent-safe LRU cache of encoded layers with TTL
// expiration.
type LayerCache struct {
	mu         sync.Mutex
	entries    map[LayerKey]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	ttl        time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

// CachedLayer is an encoded layer and the id of the render that built it.
type CachedLayer struct {
	RenderID string
	Data     []byte
}

type layerCacheEntry struct {
	key       LayerKey
	layer     CachedLayer
	createdAt time.Time
}

// CacheStats contains cache performance statistics.
type CacheStats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

// NewLayerCache creates a LayerCache holding at most maxEntries layers.
func NewLayerCache(maxEntries int, ttl time.Duration) *LayerCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LayerCache{
		entries:    make(map[LayerKey]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns a cached layer. ok is false on miss or expiration.
func (c *LayerCache) Get(key LayerKey) (layer CachedLayer, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		return CachedLayer{}, false
	}
	entry := el.Value.(*layerCacheEntry)
	if c.ttl > 0 && time.Since(entry.createdAt) > c.ttl {
		c.order.Remove(el)
		delete(c.entries, key)
		c.misses.Add(1)
		return CachedLayer{}, false
	}

	c.order.MoveToFront(el)
	c.hits.Add(1)
	return entry.layer, true
}

// Put stores a layer, evicting the least recently used entry at capacity.
func (c *LayerCache) Put(key LayerKey, layer CachedLayer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value = &layerCacheEntry{key: key, layer: layer, createdAt: time.Now()}
		c.order.MoveToFront(el)
		return
	}

	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*layerCacheEntry).key)
	}

	c.entries[key] = c.order.PushFront(&layerCacheEntry{key: key, layer: layer, createdAt: time.Now()})
}

// InvalidateZones drops every layer built on the given zone version.
func (c *LayerCache) InvalidateZones(zonesHash string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, el := range c.entries {
		if key.Zones == zonesHash {
			c.order.Remove(el)
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns cache performance statistics.
func (c *LayerCache) Stats() CacheStats {
	c.mu.Lock()
	entries := len(c.entries)
	c.mu.Unlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

package render

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func key(origin string) LayerKey {
	return LayerKey{Zones: "tz1", Mode: "travel_costs_car.csv", Costs: "c1", Origin: origin}
}

func layer(data string) CachedLayer {
	return CachedLayer{RenderID: "r-" + data, Data: []byte(data)}
}

func cached(c *LayerCache, k LayerKey) bool {
	_, ok := c.Get(k)
	return ok
}

func TestLayerCache_BasicGetPut(t *testing.T) {
	cache := NewLayerCache(10, time.Hour)

	assert.False(t, cached(cache, key("1")))

	cache.Put(key("1"), layer(`{"type":"FeatureCollection"}`))
	got, ok := cache.Get(key("1"))
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"type":"FeatureCollection"}`), got.Data)
	assert.Equal(t, `r-{"type":"FeatureCollection"}`, got.RenderID)

	assert.False(t, cached(cache, key("2")))
}

func TestLayerCache_TTLExpiration(t *testing.T) {
	cache := NewLayerCache(10, 50*time.Millisecond)

	cache.Put(key("1"), layer("layer"))
	assert.True(t, cached(cache, key("1")))

	time.Sleep(60 * time.Millisecond)
	assert.False(t, cached(cache, key("1")))
	assert.Equal(t, 0, cache.Stats().Entries)
}

func TestLayerCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewLayerCache(2, time.Hour)

	cache.Put(key("1"), layer("a"))
	cache.Put(key("2"), layer("b"))
	cache.Get(key("1"))
	cache.Put(key("3"), layer("c"))

	assert.True(t, cached(cache, key("1")))
	assert.False(t, cached(cache, key("2")))
	assert.True(t, cached(cache, key("3")))
}

func TestLayerCache_PutReplaces(t *testing.T) {
	cache := NewLayerCache(2, time.Hour)
	cache.Put(key("1"), layer("old"))
	cache.Put(key("1"), layer("new"))

	got, _ := cache.Get(key("1"))
	assert.Equal(t, layer("new"), got)
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestLayerCache_InvalidateZones(t *testing.T) {
	cache := NewLayerCache(10, time.Hour)
	cache.Put(key("1"), layer("a"))
	cache.Put(key("2"), layer("b"))
	other := LayerKey{Zones: "tz2", Origin: "1"}
	cache.Put(other, layer("c"))

	assert.Equal(t, 2, cache.InvalidateZones("tz1"))
	assert.False(t, cached(cache, key("1")))
	assert.True(t, cached(cache, other))
	assert.Equal(t, 0, cache.InvalidateZones("tz1"))
}

func TestLayerCache_Stats(t *testing.T) {
	cache := NewLayerCache(5, time.Hour)
	cache.Put(key("1"), layer("a"))
	cache.Get(key("1"))
	cache.Get(key("1"))
	cache.Get(key("2"))

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 5, stats.MaxEntries)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.667, stats.HitRate, 0.001)
}

func TestLayerCache_Concurrent(t *testing.T) {
	cache := NewLayerCache(8, time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := key(string(rune('a' + i%10)))
			cache.Put(k, CachedLayer{Data: []byte{byte(i)}})
			cache.Get(k)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Stats().Entries, 8)
}

func TestLayerKey_String(t *testing.T) {
	assert.Equal(t, "tz1/travel_costs_car.csv/c1/42", key("42").String())
}

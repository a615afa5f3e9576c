package chart

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOrBuild(t *testing.T) {
	c := NewCache(10)
	builds := 0
	build := func() *Chart {
		builds++
		return &Chart{Options: Options{Title: "t"}}
	}

	first, hit := c.GetOrBuild("k", build)
	assert.False(t, hit)
	second, hit := c.GetOrBuild("k", build)
	assert.True(t, hit)
	assert.Same(t, first, second)
	assert.Equal(t, 1, builds, "should only build once")

	_, hit = c.GetOrBuild("other", build)
	assert.False(t, hit)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Zero(t, c.Len())
	_, hit = c.GetOrBuild("k", build)
	assert.False(t, hit)
}

func TestCache_DisabledWhenSizeZero(t *testing.T) {
	c := NewCache(0)
	builds := 0
	build := func() *Chart { builds++; return &Chart{} }

	c.GetOrBuild("k", build)
	c.GetOrBuild("k", build)
	assert.Equal(t, 2, builds)
	assert.Zero(t, c.Len())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)
	a, b := &Chart{}, &Chart{}

	c.put("a", a)
	c.put("b", b)

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", &Chart{})
	c.put("b", &Chart{})
	c.get("a")
	c.put("c", &Chart{})

	_, ok := c.get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	old, replacement := &Chart{}, &Chart{}
	c.put("a", old)
	c.put("a", replacement)

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Len(t, c.entries, 1)
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	c := newLRUCache(50)
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%20)
			c.put(key, &Chart{})
			c.get(key)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, len(c.entries), 50)
}

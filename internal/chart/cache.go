package chart

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// Cache keeps recently built charts. Charts returned from the cache are
// shared and must not be modified.
type Cache struct {
	lru *lruCache
}

// NewCache creates a chart cache holding at most maxEntries charts. A
// non-positive size disables caching.
func NewCache(maxEntries int) *Cache {
	return &Cache{lru: newLRUCache(maxEntries)}
}

// GetOrBuild returns the cached chart for key, or builds, stores and returns
// a new one. The second result reports whether the chart came from the cache.
func (c *Cache) GetOrBuild(key string, build func() *Chart) (*Chart, bool) {
	if ch, ok := c.lru.get(key); ok {
		return ch, true
	}
	ch := build()
	if c.lru.maxEntries > 0 {
		c.lru.put(key, ch)
	}
	return ch, false
}

// Len reports the number of cached charts.
func (c *Cache) Len() int {
	c.lru.mu.Lock()
	defer c.lru.mu.Unlock()
	return len(c.lru.entries)
}

// Purge drops every cached chart.
func (c *Cache) Purge() {
	c.lru.mu.Lock()
	defer c.lru.mu.Unlock()
	c.lru.entries = make(map[string]*entry)
	c.lru.head, c.lru.tail = nil, nil
}

// CacheKey identifies a chart by its parameters, the regions drawn and the
// load time of the dataset they came from.
func CacheKey(p Params, regions []*domain.Region, loadedAt time.Time) string {
	ids := make([]int, len(regions))
	for i, r := range regions {
		ids[i] = r.ID
	}
	slices.Sort(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "%d|%+v|", loadedAt.UnixNano(), p)
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(',')
	}
	return b.String()
}

// lruCache is a simple thread-safe LRU cache of charts.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *Chart
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*Chart, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *Chart) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}

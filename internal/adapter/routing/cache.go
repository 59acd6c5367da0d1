package routing

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/civisafe/hazardwatch/internal/domain"
	"github.com/civisafe/hazardwatch/internal/observability"
)

// CachedProvider wraps a RoadPathProvider with an in-memory LRU cache.
// Identical waypoint sequences are frequent: the map UI re-scores the same
// evacuation routes on every hazard change.
type CachedProvider struct {
	inner   RoadPathProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a road-path provider.
func NewCachedProvider(inner RoadPathProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedProvider) RoadPath(ctx context.Context, waypoints []domain.Coordinate) ([]domain.Coordinate, error) {
	key := pathKey(waypoints)
	if path, ok := c.cache.get(key); ok {
		c.metrics.RoadPathCache.WithLabelValues("hit").Inc()
		return path, nil
	}
	c.metrics.RoadPathCache.WithLabelValues("miss").Inc()

	path, err := c.inner.RoadPath(ctx, waypoints)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, path)
	return path, nil
}

// pathKey builds a stable cache key from the waypoint sequence.
func pathKey(waypoints []domain.Coordinate) string {
	var b strings.Builder
	for _, w := range waypoints {
		fmt.Fprintf(&b, "%.6f,%.6f;", w.Lat, w.Lng)
	}
	return b.String()
}

// lruCache is a simple thread-safe LRU cache for road paths.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Coordinate
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Coordinate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Coordinate) {
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
	evicted := c.tail
	c.remove(evicted)
	delete(c.entries, evicted.key)
}

package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRU cache with TTL and size-based eviction
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	sliding bool
	onEvict func(key string, data T)
	now     func() time.Time
	items   map[string]*list.Element
	lru     *list.List
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

type evicted[T any] struct {
	key  string
	data T
}

// Option configures an LRUCache.
type Option[T any] func(*LRUCache[T])

// WithSlidingTTL makes every successful Get push the expiry forward, so the
// TTL measures idle time instead of age.
func WithSlidingTTL[T any]() Option[T] {
	return func(c *LRUCache[T]) { c.sliding = true }
}

// WithOnEvict registers fn to run for every item leaving the cache, whether
// by expiry, capacity, replacement, Delete or Clear. fn runs without the
// cache lock held.
func WithOnEvict[T any](fn func(key string, data T)) Option[T] {
	return func(c *LRUCache[T]) { c.onEvict = fn }
}

// WithClock overrides time.Now.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(c *LRUCache[T]) { c.now = now }
}

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	c := &LRUCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	data, ok, gone := c.getLocked(key)
	c.mu.Unlock()

	c.notify(gone)
	return data, ok
}

// GetOrSet returns the cached value for key, or stores and returns create().
// The boolean reports whether the value was already present.
func (c *LRUCache[T]) GetOrSet(key string, create func() T) (T, bool) {
	c.mu.Lock()
	data, ok, gone := c.getLocked(key)
	if !ok {
		data = create()
		gone = append(gone, c.setLocked(key, data)...)
	}
	c.mu.Unlock()

	c.notify(gone)
	return data, ok
}

// Set stores a value in the cache
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	gone := c.setLocked(key, data)
	c.mu.Unlock()

	c.notify(gone)
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	var gone []evicted[T]
	if elem, exists := c.items[key]; exists {
		gone = append(gone, c.removeElement(elem))
	}
	c.mu.Unlock()

	c.notify(gone)
}

// Clear empties the cache, evicting every item.
func (c *LRUCache[T]) Clear() {
	c.mu.Lock()
	gone := make([]evicted[T], 0, len(c.items))
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		gone = append(gone, c.removeElement(elem))
		elem = next
	}
	c.mu.Unlock()

	c.notify(gone)
}

// CleanExpired removes all expired entries and returns count of removed items
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	now := c.now()
	var gone []evicted[T]
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			gone = append(gone, c.removeElement(elem))
		}
		elem = next
	}
	c.mu.Unlock()

	c.notify(gone)
	return len(gone)
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *LRUCache[T]) getLocked(key string) (T, bool, []evicted[T]) {
	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false, nil
	}

	item := elem.Value.(*cacheItem[T])
	now := c.now()
	if now.After(item.expiresAt) {
		return zero, false, []evicted[T]{c.removeElement(elem)}
	}

	if c.sliding {
		item.expiresAt = now.Add(c.ttl)
	}
	c.lru.MoveToFront(elem)
	return item.data, true, nil
}

func (c *LRUCache[T]) setLocked(key string, data T) []evicted[T] {
	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.now().Add(c.ttl),
	}

	if elem, exists := c.items[key]; exists {
		old := elem.Value.(*cacheItem[T])
		elem.Value = item
		c.lru.MoveToFront(elem)
		return []evicted[T]{{key: old.key, data: old.data}}
	}

	elem := c.lru.PushFront(item)
	c.items[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			return []evicted[T]{c.removeElement(oldest)}
		}
	}
	return nil
}

func (c *LRUCache[T]) removeElement(elem *list.Element) evicted[T] {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
	return evicted[T]{key: item.key, data: item.data}
}

func (c *LRUCache[T]) notify(gone []evicted[T]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range gone {
		c.onEvict(e.key, e.data)
	}
}

package cache

import (
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a thread-safe in-process CacheService with TTL support.
// It backs tests and deployments without memcached.
type MemoryCache struct {
	mu   sync.RWMutex
	data map[string]memoryItem
	now  func() time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]memoryItem),
		now:  time.Now,
	}
}

// Get retrieves a copy of the stored value
func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.data[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if c.expired(item) {
		c.evict(key)
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

func (c *MemoryCache) expired(item memoryItem) bool {
	return !item.expiresAt.IsZero() && c.now().After(item.expiresAt)
}

// evict removes key only if the entry is still expired under the write lock,
// so a value stored after the read is kept.
func (c *MemoryCache) evict(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.data[key]; ok && c.expired(item) {
		delete(c.data, key)
	}
}

// Set stores a copy of value. A non-positive expiration never expires.
func (c *MemoryCache) Set(key string, value []byte, expiration time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if expiration > 0 {
		item.expiresAt = c.now().Add(expiration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = item
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Size returns the number of stored items, expired ones included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

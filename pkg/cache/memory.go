package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryCache implements Service in process memory. Used in tests and for
// single-node setups without Redis.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem)}
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		var err error
		data, err = json.Marshal(value)
		if err != nil {
			return err
		}
	}

	var expires time.Time
	if expiration > 0 {
		expires = time.Now().Add(expiration)
	}

	c.mu.Lock()
	c.items[key] = memoryItem{data: data, expiresAt: expires}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	it, ok := c.liveLocked(key)
	c.mu.Unlock()
	if !ok {
		return ErrCacheMiss
	}

	if strPtr, isStr := dest.(*string); isStr {
		*strPtr = string(it.data)
		return nil
	}
	return json.Unmarshal(it.data, dest)
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if _, ok := c.liveLocked(k); ok {
			return true, nil
		}
	}
	return false, nil
}

func (c *MemoryCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.liveLocked(key); held {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.items[key] = memoryItem{data: []byte("locked"), expiresAt: expires}
	return true, nil
}

func (c *MemoryCache) Unlock(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

// liveLocked returns the item if present and not expired; expired entries
// are removed lazily. Caller must hold the mutex.
func (c *MemoryCache) liveLocked(key string) (memoryItem, bool) {
	it, ok := c.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if !it.expiresAt.IsZero() && time.Now().After(it.expiresAt) {
		delete(c.items, key)
		return memoryItem{}, false
	}
	return it, true
}

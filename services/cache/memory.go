package cachesvc

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/trezcool/masomo-lms/core"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// memoryCache keeps JSON-encoded values in process. Used in tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

var _ core.Cache = (*memoryCache)(nil) // interface compliance check

func NewMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && !entry.expires.IsZero() && time.Now().After(entry.expires) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = memoryEntry{data: data, expires: expires}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	return nil
}

// Has reports whether key holds a live value.
func (c *memoryCache) Has(key string) bool {
	var v json.RawMessage
	ok, _ := c.Get(context.Background(), key, &v)
	return ok
}

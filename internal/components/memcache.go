package components

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache used as the default harness target and as
// a test fixture. It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	hits       int64
	misses     int64
	operations int64
	totalNanos int64
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a value, honoring per-entry TTL.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	defer c.record(start)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || (!entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)) {
		atomic.AddInt64(&c.misses, 1)
		return nil, false, nil
	}

	atomic.AddInt64(&c.hits, 1)
	return entry.value, true, nil
}

// Set stores a value with TTL. A zero TTL means no expiry.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer c.record(start)

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes a key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	start := time.Now()
	defer c.record(start)

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// MGet retrieves multiple keys; missing keys return nil slots.
func (c *MemoryCache) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	values := make([][]byte, len(keys))
	for i, key := range keys {
		value, ok, err := c.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = value
		}
	}
	return values, nil
}

// MSet stores multiple entries with a shared TTL.
func (c *MemoryCache) MSet(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	for key, value := range entries {
		if err := c.Set(ctx, key, value, ttl); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries, counting expired ones not yet evicted.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush drops all entries.
func (c *MemoryCache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]memoryEntry)
	c.mu.Unlock()
}

// CacheMetrics reports hit rate, operation count and mean call latency.
func (c *MemoryCache) CacheMetrics() CacheMetrics {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	operations := atomic.LoadInt64(&c.operations)
	totalNanos := atomic.LoadInt64(&c.totalNanos)

	metrics := CacheMetrics{Operations: operations}
	if lookups := hits + misses; lookups > 0 {
		metrics.HitRate = float64(hits) / float64(lookups)
	}
	if operations > 0 {
		metrics.AvgResponseTime = time.Duration(totalNanos / operations)
	}
	return metrics
}

func (c *MemoryCache) record(start time.Time) {
	atomic.AddInt64(&c.operations, 1)
	atomic.AddInt64(&c.totalNanos, int64(time.Since(start)))
}

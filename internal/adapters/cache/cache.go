// Package cache memoizes derived results with a bounded size and expiry.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/mowoo/SLG-Dashboard/pkg/metrics"
)

const (
	defaultCapacity = 64
	defaultTTL      = time.Minute
	bufferItems     = 64
)

// Option configures a Cache.
type Option func(*settings)

type settings struct {
	capacity int64
	ttl      time.Duration
}

// WithCapacity bounds the number of entries.
func WithCapacity(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.capacity = int64(n)
		}
	}
}

// WithTTL sets how long an entry stays valid. Zero keeps entries until evicted.
func WithTTL(d time.Duration) Option {
	return func(s *settings) {
		if d >= 0 {
			s.ttl = d
		}
	}
}

// Cache is a typed, named view over a ristretto cache. Every entry costs 1,
// so capacity is an entry count. Hits and misses are counted per name.
// After Close every lookup misses and writes are dropped.
type Cache[V any] struct {
	name  string
	ttl   time.Duration
	store *ristretto.Cache

	mu     sync.RWMutex
	closed bool
}

// New creates a cache. The name labels its metrics.
func New[V any](name string, opts ...Option) (*Cache[V], error) {
	s := settings{capacity: defaultCapacity, ttl: defaultTTL}
	for _, opt := range opts {
		opt(&s)
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        s.capacity * 10,
		MaxCost:            s.capacity,
		BufferItems:        bufferItems,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("cache %s: %w", name, err)
	}
	return &Cache[V]{name: name, ttl: s.ttl, store: store}, nil
}

// Get returns the live entry for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		metrics.RecordCacheMiss(c.name)
		return zero, false
	}
	raw, ok := c.store.Get(key)
	c.mu.RUnlock()
	if !ok {
		metrics.RecordCacheMiss(c.name)
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		metrics.RecordCacheMiss(c.name)
		return zero, false
	}
	metrics.RecordCacheHit(c.name)
	return v, true
}

// Put stores v under key. The write is visible to Get once Put returns,
// unless the admission policy refused it.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	c.store.SetWithTTL(key, v, 1, c.ttl)
	c.store.Wait()
}

// GetOrLoad returns the cached value or computes, stores and returns it.
// Errors are not cached.
func (c *Cache[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Put(key, v)
	return v, nil
}

// Invalidate drops one entry.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		c.store.Del(key)
	}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.closed {
		c.store.Clear()
	}
}

// Close stops the cache's background goroutines. It is safe to call twice.
func (c *Cache[V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.store.Close()
}

package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Cache is a typed view over a Store. Values are JSON encoded.
type Cache[T any] struct {
	store Store
	ttl   time.Duration

	// OnLookup, when set, is called with the outcome of every GetOrFetch.
	OnLookup func(key Key, hit bool)
}

// New creates a Cache whose entries live for ttl.
func New[T any](store Store, ttl time.Duration) *Cache[T] {
	return &Cache[T]{store: store, ttl: ttl}
}

// TTL returns the entry lifetime.
func (c *Cache[T]) TTL() time.Duration { return c.ttl }

// GetOrFetch returns the cached value for key, calling fetch on a miss.
// A store failure degrades to a fetch, and a fetch error is never cached.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key Key, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := c.get(ctx, key); ok {
		c.observe(key, true)
		return v, nil
	}
	c.observe(key, false)

	v, err := fetch(ctx)
	if err != nil {
		return v, err
	}
	c.put(ctx, key, v)
	return v, nil
}

// Get returns the cached value without fetching.
func (c *Cache[T]) Get(ctx context.Context, key Key) (T, bool) {
	return c.get(ctx, key)
}

// Invalidate drops a single entry.
func (c *Cache[T]) Invalidate(ctx context.Context, key Key) error {
	return c.store.Delete(ctx, key.String())
}

// InvalidateSource drops every entry of source.
func (c *Cache[T]) InvalidateSource(ctx context.Context, source string) error {
	return c.store.DeletePrefix(ctx, Key{Source: source}.String())
}

func (c *Cache[T]) get(ctx context.Context, key Key) (T, bool) {
	var zero T
	data, ok, err := c.store.Get(ctx, key.String())
	if err != nil {
		log.Printf("[WARN] cache read %s failed: %v", key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		log.Printf("[WARN] cache decode %s failed: %v", key, err)
		return zero, false
	}
	return v, true
}

func (c *Cache[T]) put(ctx context.Context, key Key, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WARN] cache encode %s failed: %v", key, err)
		return
	}
	if err := c.store.Set(ctx, key.String(), data, c.ttl); err != nil {
		log.Printf("[WARN] cache write %s failed: %v", key, err)
	}
}

func (c *Cache[T]) observe(key Key, hit bool) {
	if c.OnLookup != nil {
		c.OnLookup(key, hit)
	}
}

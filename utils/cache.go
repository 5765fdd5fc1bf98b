package utils

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"shopfloor/config"
)

// TTLCache is a bounded-TTL key-value cache owned by exactly one service and
// injected at construction. Concurrent refreshes of the same key are fine:
// values are idempotent reads from the backing store and Set is a plain
// overwrite. Invalidation is explicit; when an InvalidationBus is attached the
// invalidation is also broadcast so sibling instances sharing the backing
// store converge.
type TTLCache struct {
	name string
	ttl  time.Duration
	bus  *InvalidationBus

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func NewTTLCache(name string, ttl time.Duration) *TTLCache {
	return &TTLCache{
		name:    name,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores value under key for the cache's TTL.
func (c *TTLCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops one key and broadcasts the invalidation when a bus is attached.
func (c *TTLCache) Invalidate(key string) {
	c.dropLocal(key)
	if c.bus != nil {
		c.bus.publish(c.name, key)
	}
}

// InvalidateAll drops every key. Used when an edit's blast radius is unknown,
// e.g. any change to a plan's feature list.
func (c *TTLCache) InvalidateAll() {
	c.dropAllLocal()
	if c.bus != nil {
		c.bus.publish(c.name, wildcardKey)
	}
}

func (c *TTLCache) dropLocal(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTLCache) dropAllLocal() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

const (
	wildcardKey           = "*"
	invalidationChannel   = "shopfloor:cache:invalidations"
	invalidationSeparator = "|"
)

// InvalidationBus fans cache invalidations out over Redis pub/sub so that
// multiple service instances sharing one backing store stay coherent inside
// the TTL window. Without Redis the caches are purely local, which matches a
// single-instance deployment.
type InvalidationBus struct {
	client *redis.Client

	mu     sync.RWMutex
	caches map[string]*TTLCache
}

func NewInvalidationBus(cfg config.RedisConfig) *InvalidationBus {
	return &InvalidationBus{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		caches: make(map[string]*TTLCache),
	}
}

// Attach subscribes a cache to remote invalidations and routes its own
// invalidations through the bus.
func (b *InvalidationBus) Attach(cache *TTLCache) {
	b.mu.Lock()
	b.caches[cache.name] = cache
	b.mu.Unlock()
	cache.bus = b
}

// Listen consumes remote invalidations until ctx is cancelled. Run it in its
// own goroutine.
func (b *InvalidationBus) Listen(ctx context.Context) {
	sub := b.client.Subscribe(ctx, invalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.apply(msg.Payload)
		}
	}
}

func (b *InvalidationBus) publish(cacheName, key string) {
	payload := cacheName + invalidationSeparator + key
	if err := b.client.Publish(context.Background(), invalidationChannel, payload).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"cache": cacheName,
			"key":   key,
		}).WithError(err).Warn("failed to broadcast cache invalidation")
	}
}

func (b *InvalidationBus) apply(payload string) {
	parts := strings.SplitN(payload, invalidationSeparator, 2)
	if len(parts) != 2 {
		return
	}
	b.mu.RLock()
	cache, ok := b.caches[parts[0]]
	b.mu.RUnlock()
	if !ok {
		return
	}
	if parts[1] == wildcardKey {
		cache.dropAllLocal()
	} else {
		cache.dropLocal(parts[1])
	}
}

// Close releases the Redis connection.
func (b *InvalidationBus) Close() error {
	return b.client.Close()
}

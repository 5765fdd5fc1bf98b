package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheGetSet(t *testing.T) {
	cache := NewTTLCache("test", time.Minute)

	_, ok := cache.Get("k")
	assert.False(t, ok)

	cache.Set("k", "v")
	got, ok := cache.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestTTLCacheExpiry(t *testing.T) {
	cache := NewTTLCache("test", 10*time.Millisecond)

	cache.Set("k", "v")
	_, ok := cache.Get("k")
	assert.True(t, ok)

	time.Sleep(25 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestTTLCacheInvalidate(t *testing.T) {
	cache := NewTTLCache("test", time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Invalidate("a")
	_, ok := cache.Get("a")
	assert.False(t, ok)
	got, ok := cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestTTLCacheInvalidateAll(t *testing.T) {
	cache := NewTTLCache("test", time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.InvalidateAll()
	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("b")
	assert.False(t, ok)
}

func TestTTLCacheOverwrite(t *testing.T) {
	cache := NewTTLCache("test", time.Minute)

	cache.Set("k", "old")
	cache.Set("k", "new")
	got, _ := cache.Get("k")
	assert.Equal(t, "new", got)
}

package rag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("model-a", "hello"), CacheKey("model-a", "hello"))
	assert.NotEqual(t, CacheKey("model-a", "hello"), CacheKey("model-b", "hello"))
	assert.NotEqual(t, CacheKey("model-a", "hello"), CacheKey("model-a", "world"))
}

func TestMemoryCache(t *testing.T) {
	t.Run("miss on empty cache", func(t *testing.T) {
		c := NewMemoryCache(time.Hour)
		_, ok := c.Get("m", "text")
		assert.False(t, ok)
	})

	t.Run("hit returns stored embedding", func(t *testing.T) {
		c := NewMemoryCache(time.Hour)
		require.NoError(t, c.Set("m", "text", []float64{1, 2, 3}))
		got, ok := c.Get("m", "text")
		require.True(t, ok)
		assert.Equal(t, []float64{1, 2, 3}, got)
	})

	t.Run("expired entries ignored", func(t *testing.T) {
		c := NewMemoryCache(time.Hour)
		now := time.Now()
		c.now = func() time.Time { return now }
		require.NoError(t, c.Set("m", "text", []float64{1}))

		c.now = func() time.Time { return now.Add(time.Hour) }
		_, ok := c.Get("m", "text")
		assert.False(t, ok)
	})

	t.Run("read does not refresh timestamp", func(t *testing.T) {
		c := NewMemoryCache(time.Hour)
		now := time.Now()
		c.now = func() time.Time { return now }
		require.NoError(t, c.Set("m", "text", []float64{1}))

		// A read halfway through the TTL must not extend the entry's life.
		c.now = func() time.Time { return now.Add(30 * time.Minute) }
		_, ok := c.Get("m", "text")
		require.True(t, ok)

		c.now = func() time.Time { return now.Add(61 * time.Minute) }
		_, ok = c.Get("m", "text")
		assert.False(t, ok)
	})
}

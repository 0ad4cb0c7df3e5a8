package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cache maps (model, text) to a previously computed embedding so repeated
// ingestion and common queries avoid redundant API calls. Implementations
// ignore entries older than their TTL on read and never refresh timestamps
// on a hit.
type Cache interface {
	// Get returns the cached embedding for the text, or false when absent
	// or expired.
	Get(model, text string) ([]float64, bool)

	// Set stores an embedding. Overwrites any prior entry for the same key.
	Set(model, text string, embedding []float64) error
}

// CacheKey derives the storage key for a model/text pair.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "-" + text))
	return hex.EncodeToString(sum[:])
}

type memoryCacheEntry struct {
	embedding []float64
	storedAt  time.Time
}

// MemoryCache is an in-process Cache for tests and cache-less deployments.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached embedding if present and fresh. Stale entries are
// ignored, not deleted.
func (c *MemoryCache) Get(model, text string) ([]float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[CacheKey(model, text)]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.embedding, true
}

// Set stores an embedding with the current timestamp.
func (c *MemoryCache) Set(model, text string, embedding []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[CacheKey(model, text)] = memoryCacheEntry{
		embedding: embedding,
		storedAt:  c.now(),
	}
	return nil
}

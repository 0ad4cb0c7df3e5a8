package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/saurabh22suman/soloengine.in/rag"
	"github.com/saurabh22suman/soloengine.in/vector"
)

// EmbeddingCache is the SQL-backed rag.Cache. It shares the site's database
// so a cache survives restarts without a separate store to operate.
type EmbeddingCache struct {
	store *Store
	ttl   time.Duration
}

var _ rag.Cache = (*EmbeddingCache)(nil)

// NewEmbeddingCache creates a cache over this store with the given TTL.
func (s *Store) NewEmbeddingCache(ttl time.Duration) *EmbeddingCache {
	return &EmbeddingCache{store: s, ttl: ttl}
}

// Get returns a fresh cached embedding. Stale entries are ignored in place;
// they are overwritten by the next Set for the same key. Reads never refresh
// the entry's timestamp.
func (c *EmbeddingCache) Get(model, text string) ([]float64, bool) {
	var blob []byte
	var createdAt int64
	err := c.store.db.QueryRow(c.store.rebind(`
		SELECT embedding, created_at FROM rag_embedding_cache WHERE cache_key = ?`),
		rag.CacheKey(model, text),
	).Scan(&blob, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Printf("[store] Embedding cache read failed: %v", err)
		return nil, false
	}

	if c.store.now().Sub(unixTime(createdAt)) >= c.ttl {
		return nil, false
	}

	embedding := vector.Decode(blob)
	if embedding == nil {
		return nil, false
	}
	return embedding, true
}

// Set stores an embedding, replacing any prior entry for the key.
func (c *EmbeddingCache) Set(model, text string, embedding []float64) error {
	var query string
	if c.store.driver == driverPostgres {
		query = `
			INSERT INTO rag_embedding_cache (cache_key, model, embedding, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (cache_key) DO UPDATE SET
				model = EXCLUDED.model,
				embedding = EXCLUDED.embedding,
				created_at = EXCLUDED.created_at`
	} else {
		query = `
			INSERT OR REPLACE INTO rag_embedding_cache (cache_key, model, embedding, created_at)
			VALUES (?, ?, ?, ?)`
	}

	_, err := c.store.db.Exec(c.store.rebind(query),
		rag.CacheKey(model, text), model, vector.Encode(embedding), c.store.now().Unix())
	if err != nil {
		return fmt.Errorf("write embedding cache: %w", err)
	}
	return nil
}

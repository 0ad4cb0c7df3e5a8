package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"

	"github.com/saurabh22suman/soloengine.in/vector"
)

// MaxSearchLimit is the hard ceiling on requested search results.
const MaxSearchLimit = 50

// DefaultMinScore is the similarity floor below which chunks are discarded.
const DefaultMinScore = 0.6

// Search embeds the query and scans every stored chunk with cosine
// similarity. There is no index: the corpus is a personal resume measured in
// tens of chunks, and a full scan keeps the storage layout trivial.
//
// Embedding failure fails closed: the search returns no results rather than
// an error the chat path would have to special-case.
func (s *Store) Search(ctx context.Context, query string, limit int, minScore float64) ([]SearchResult, error) {
	if query == "" || limit <= 0 || limit > MaxSearchLimit {
		return nil, fmt.Errorf("%w: bad query or limit", ErrInvalidInput)
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		log.Printf("[store] Failed to embed search query: %v", err)
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.embedding,
		       d.title, d.source, d.metadata
		FROM rag_chunks c
		JOIN rag_documents d ON d.id = c.document_id`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var blob []byte
		var metadataJSON sql.NullString
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &blob, &r.Title, &r.Source, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		chunkEmbedding := vector.Decode(blob)
		if chunkEmbedding == nil {
			log.Printf("[store] Skipping chunk %d: corrupt embedding blob", r.ChunkID)
			continue
		}

		score := vector.CosineSimilarity(queryEmbedding, chunkEmbedding)
		if score < minScore {
			continue
		}
		r.Score = score
		r.Metadata = decodeMetadata(metadataJSON)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

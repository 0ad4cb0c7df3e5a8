// Package vector provides embedding math and serialization for the
// brute-force similarity search.
package vector

import (
	"log"
	"math"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// A dimension mismatch returns 0 and is logged: all embeddings in the store
// come from one model, so a mismatch means cross-model contamination.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) != len(b) {
		log.Printf("[vector] Embedding dimension mismatch: %d vs %d", len(a), len(b))
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

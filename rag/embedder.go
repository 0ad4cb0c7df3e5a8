package rag

import (
	"context"
	"errors"
	"log"
)

// MaxEmbedChars is the input length ceiling for embedding requests. Longer
// text is rejected before any network call.
const MaxEmbedChars = 10000

var (
	// ErrEmptyInput is returned for empty or whitespace-only embed input.
	ErrEmptyInput = errors.New("empty input text")

	// ErrInputTooLong is returned when input exceeds MaxEmbedChars.
	ErrInputTooLong = errors.New("input text too long")
)

// Embedder turns text into fixed-dimension vectors. A failed Embed is
// non-fatal for callers: they skip the item rather than abort.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// Provider is the raw embedding backend behind the cache.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Dimension() int
}

// ValidateInput rejects text the embedding API should never see.
func ValidateInput(text string) error {
	if text == "" {
		return ErrEmptyInput
	}
	if len(text) > MaxEmbedChars {
		return ErrInputTooLong
	}
	return nil
}

// CachedEmbedder fronts a Provider with a Cache. Cache lookups happen before
// any network call; results are cached only on success, and cache hits are
// returned unchanged without refreshing the entry.
type CachedEmbedder struct {
	provider Provider
	cache    Cache
	model    string
}

// NewCachedEmbedder wires a provider and a cache together for one model.
func NewCachedEmbedder(provider Provider, cache Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{provider: provider, cache: cache, model: model}
}

// Embed returns the embedding for text, consulting the cache first.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ValidateInput(text); err != nil {
		return nil, err
	}

	if embedding, ok := e.cache.Get(e.model, text); ok {
		return embedding, nil
	}

	embedding, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(e.model, text, embedding); err != nil {
		log.Printf("[embed] Failed to cache embedding: %v", err)
	}
	return embedding, nil
}

// EmbedBatch embeds texts sequentially (the inference API has no true batch
// endpoint). A failed item becomes a zero vector so the result stays
// positionally aligned with the input.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	embeddings := make([][]float64, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			log.Printf("[embed] Batch item %d failed, substituting zero vector: %v", i, err)
			embedding = make([]float64, e.Dimension())
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

// Dimension reports the provider's embedding dimension.
func (e *CachedEmbedder) Dimension() int {
	return e.provider.Dimension()
}

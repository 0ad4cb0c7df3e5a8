package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls     int
	embedding []float64
	err       error
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

func (s *stubProvider) Dimension() int { return 3 }

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty input", func(t *testing.T) {
		p := &stubProvider{embedding: []float64{1, 2, 3}}
		e := NewCachedEmbedder(p, NewMemoryCache(time.Hour), "m")
		_, err := e.Embed(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.Zero(t, p.calls)
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		p := &stubProvider{embedding: []float64{1, 2, 3}}
		e := NewCachedEmbedder(p, NewMemoryCache(time.Hour), "m")
		_, err := e.Embed(ctx, strings.Repeat("x", MaxEmbedChars+1))
		assert.ErrorIs(t, err, ErrInputTooLong)
		assert.Zero(t, p.calls)
	})

	t.Run("cache hit skips provider", func(t *testing.T) {
		p := &stubProvider{embedding: []float64{1, 2, 3}}
		e := NewCachedEmbedder(p, NewMemoryCache(time.Hour), "m")

		first, err := e.Embed(ctx, "hello")
		require.NoError(t, err)
		second, err := e.Embed(ctx, "hello")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("failure is not cached", func(t *testing.T) {
		p := &stubProvider{err: errors.New("api down")}
		cache := NewMemoryCache(time.Hour)
		e := NewCachedEmbedder(p, cache, "m")

		_, err := e.Embed(ctx, "hello")
		require.Error(t, err)
		_, ok := cache.Get("m", "hello")
		assert.False(t, ok)
	})

	t.Run("batch substitutes zero vectors for failures", func(t *testing.T) {
		p := &stubProvider{err: errors.New("api down")}
		e := NewCachedEmbedder(p, NewMemoryCache(time.Hour), "m")

		got, err := e.EmbedBatch(ctx, []string{"a", "b"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, []float64{0, 0, 0}, got[0])
		assert.Equal(t, []float64{0, 0, 0}, got[1])
	})

	t.Run("batch preserves positions", func(t *testing.T) {
		p := &stubProvider{embedding: []float64{1, 1, 1}}
		e := NewCachedEmbedder(p, NewMemoryCache(time.Hour), "m")

		got, err := e.EmbedBatch(ctx, []string{"a", "", "c"})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []float64{1, 1, 1}, got[0])
		assert.Equal(t, []float64{0, 0, 0}, got[1]) // empty input failed validation
		assert.Equal(t, []float64{1, 1, 1}, got[2])
	})
}

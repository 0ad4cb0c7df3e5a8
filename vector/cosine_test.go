package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float64{0.5, -1.2, 3.4, 0.01}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-9)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		v := []float64{1, 2, 3}
		neg := []float64{-1, -2, -3}
		assert.InDelta(t, -1.0, CosineSimilarity(v, neg), 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	})

	t.Run("dimension mismatch returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}))
	})

	t.Run("zero magnitude returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	})

	t.Run("empty vectors return zero", func(t *testing.T) {
		assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	})
}

func TestEncodeDecode(t *testing.T) {
	v := []float64{0.25, -3.75, 1e-8, 42}
	got := Decode(Encode(v))
	assert.Equal(t, v, got)
}

func TestDecodeCorrupt(t *testing.T) {
	assert.Nil(t, Decode([]byte{1, 2, 3}))
	assert.Nil(t, Decode(nil))
}

package descriptor

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{0.1, 0.2, 0.3}, []float32{0.1, 0.2, 0.3}, 1},
		{"scaled copy", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"opposite", []float32{1, -1}, []float32{-1, 1}, 0},
		{"mismatched length", []float32{1, 2, 3}, []float32{1, 2}, 0},
		{"empty", nil, nil, 0},
		{"zero query", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero stored", []float32{1, 1}, []float32{0, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.a, tt.b), 1e-6)
		})
	}
}

func TestScore_Range(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		a := make([]float32, Dim)
		b := make([]float32, Dim)
		for i := range Dim {
			a[i] = float32(rng.NormFloat64())
			b[i] = float32(rng.NormFloat64())
		}
		s := Score(a, b)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
		assert.InDelta(t, s, Score(b, a), 1e-12, "score must be symmetric")
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{3, 4}, []float32{3, 4}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{3, 4}, []float32{-3, -4}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 2}))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(make([]float32, Dim)))
	assert.ErrorIs(t, Validate(make([]float32, 64)), ErrDimensionMismatch)
	assert.ErrorIs(t, Validate(nil), ErrDimensionMismatch)
}

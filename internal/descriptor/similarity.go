package descriptor

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Returns 0 for vectors of different length, empty vectors, and vectors
// with zero magnitude.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return max(-1, min(1, sim))
}

// Score rescales the cosine similarity of a and b from [-1, 1] to [0, 1].
// Invalid pairs (mismatched length, zero magnitude) score 0, not 0.5.
func Score(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || isZero(a) || isZero(b) {
		return 0
	}
	return (Cosine(a, b) + 1) / 2
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

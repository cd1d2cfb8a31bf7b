package database

import "github.com/kozaktomas/missing-persons/internal/descriptor"

// CosineDistance computes the cosine distance between two vectors
// Returns a value between 0 (identical) and 2 (opposite)
// Cosine distance = 1 - cosine similarity
func CosineDistance(a, b []float32) float64 {
	if descriptor.Score(a, b) == 0 {
		return 2.0 // Invalid input, zero vectors and opposite vectors
	}
	return 1 - descriptor.Cosine(a, b)
}

// ScoreToDistance converts a similarity score in [0, 1] into the equivalent
// cosine distance: score = (cos+1)/2 and distance = 1-cos, so
// distance = 2*(1-score).
func ScoreToDistance(score float64) float64 {
	return 2 * (1 - score)
}

// DistanceToScore converts a cosine distance in [0, 2] into a similarity
// score in [0, 1].
func DistanceToScore(distance float64) float64 {
	return max(0, min(1, 1-distance/2))
}

package facematch

import (
	"cmp"
	"slices"

	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// Scored pairs a candidate with its similarity score in [0, 1].
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank scores every candidate against query and keeps those scoring
// strictly above threshold, best first. Candidates with equal scores keep
// their input order. A non-positive limit returns all matches.
//
// vectorOf returns the descriptor of a candidate; a nil or empty descriptor
// scores 0 and is therefore never returned.
func Rank[T any](query []float32, candidates []T, vectorOf func(T) []float32, threshold float64, limit int) []Scored[T] {
	var results []Scored[T]
	for _, c := range candidates {
		score := descriptor.Score(query, vectorOf(c))
		if score > threshold {
			results = append(results, Scored[T]{Item: c, Score: score})
		}
	}

	slices.SortStableFunc(results, func(a, b Scored[T]) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

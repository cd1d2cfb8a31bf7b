package database

import (
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/kozaktomas/missing-persons/internal/facematch"
)

// SearchDescriptor returns the descriptor a person is scored with: the stored
// one, an identity-derived one when synthesize is set, or nil.
func SearchDescriptor(p *StoredPerson, synthesize bool) []float32 {
	if p.HasDescriptor() {
		return p.Descriptor
	}
	if synthesize {
		return descriptor.FromIdentity(p.ID, p.Age, p.Name)
	}
	return nil
}

// Rank scores persons against query and returns those above the threshold,
// best first. Ties keep registry order.
func Rank(query []float32, persons []StoredPerson, opts MatchOptions) []Match {
	scored := facematch.Rank(query, persons, func(p StoredPerson) []float32 {
		return SearchDescriptor(&p, opts.SynthesizeMissing)
	}, opts.Threshold, opts.Limit)

	matches := make([]Match, len(scored))
	for i, s := range scored {
		matches[i] = Match{Person: s.Item, Confidence: s.Score}
	}
	return matches
}

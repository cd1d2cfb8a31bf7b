package database

import (
	"math"
	"testing"

	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

func TestRank(t *testing.T) {
	persons := samplePersons()
	persons[0].Descriptor = unitVector(0)
	persons[1].Descriptor = unitVector(1)
	// persons[2] has no descriptor

	query := unitVector(0)
	query[1] = 1

	matches := Rank(query, persons, MatchOptions{Threshold: 0.3})
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	want := (1/math.Sqrt2 + 1) / 2
	for _, m := range matches {
		if math.Abs(m.Confidence-want) > 1e-6 {
			t.Errorf("confidence of %s = %v, want %v", m.Person.ID, m.Confidence, want)
		}
	}
	if matches[0].Person.ID != "person-1" {
		t.Errorf("ties must keep registry order, got %s first", matches[0].Person.ID)
	}
}

func TestRank_SortedDescending(t *testing.T) {
	persons := samplePersons()
	persons[0].Descriptor = unitVector(5)
	persons[1].Descriptor = unitVector(0)
	persons[2].Descriptor = unitVector(0)
	persons[2].Descriptor[5] = 1

	matches := Rank(unitVector(0), persons, MatchOptions{Threshold: 0.3})

	got := []string{}
	for _, m := range matches {
		got = append(got, m.Person.ID)
	}
	want := []string{"person-2", "person-3", "person-1"}
	if !equalIDs(got, want) {
		t.Errorf("Rank() order = %v, want %v", got, want)
	}
}

func TestRank_SynthesizeMissing(t *testing.T) {
	persons := samplePersons()
	query := descriptor.FromIdentity(persons[1].ID, persons[1].Age, persons[1].Name)

	if got := Rank(query, persons, MatchOptions{Threshold: 0.3}); len(got) != 0 {
		t.Errorf("persons without descriptors must not match, got %d", len(got))
	}

	got := Rank(query, persons, MatchOptions{Threshold: 0.99, SynthesizeMissing: true})
	if len(got) == 0 || got[0].Person.ID != "person-2" {
		t.Fatalf("expected person-2 to match its identity descriptor, got %+v", got)
	}
	if got[0].Person.Descriptor != nil {
		t.Error("synthesized descriptors must not be attached to results")
	}
}

func TestScoreDistanceConversion(t *testing.T) {
	for _, score := range []float64{0, 0.3, 0.5, 1} {
		if got := DistanceToScore(ScoreToDistance(score)); math.Abs(got-score) > 1e-12 {
			t.Errorf("round trip of %v = %v", score, got)
		}
	}
	if math.Abs(ScoreToDistance(0.3)-1.4) > 1e-12 {
		t.Errorf("ScoreToDistance(0.3) = %v, want 1.4", ScoreToDistance(0.3))
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance(unitVector(0), unitVector(0)); math.Abs(d) > 1e-9 {
		t.Errorf("identical vectors distance = %v, want 0", d)
	}
	if d := CosineDistance(unitVector(0), unitVector(1)); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal vectors distance = %v, want 1", d)
	}
	if d := CosineDistance([]float32{1}, []float32{1, 2}); d != 2 {
		t.Errorf("mismatched vectors distance = %v, want 2", d)
	}
}

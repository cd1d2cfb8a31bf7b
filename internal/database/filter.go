package database

import (
	"time"

	"github.com/kozaktomas/missing-persons/internal/facematch"
)

// IsEmpty reports whether no predicate is configured.
func (f *SearchFilters) IsEmpty() bool {
	return f.AgeRange == nil && f.Gender == "" && f.DateRange == nil && f.Location == "" && f.Status == ""
}

// Matches reports whether p satisfies every configured predicate.
// Age and date bounds are inclusive; the location matches as a substring,
// ignoring case and diacritics.
func (f *SearchFilters) Matches(p *StoredPerson) bool {
	if f.AgeRange != nil && (p.Age < f.AgeRange.Min || p.Age > f.AgeRange.Max) {
		return false
	}
	if f.Gender != "" && p.Gender != f.Gender {
		return false
	}
	if f.DateRange != nil && !inDateRange(p.LostDate, f.DateRange) {
		return false
	}
	if f.Location != "" && !facematch.ContainsFold(p.LostLocation, f.Location) {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	return true
}

// inDateRange compares calendar days so that a lost date on the end day is
// included regardless of its time of day. A zero bound is open.
func inDateRange(t time.Time, r *DateRange) bool {
	day := truncateToDay(t)
	if !r.Start.IsZero() && day.Before(truncateToDay(r.Start)) {
		return false
	}
	if !r.End.IsZero() && day.After(truncateToDay(r.End)) {
		return false
	}
	return true
}

// Filter returns the persons matching f, preserving order. Empty filters
// return persons unchanged.
func Filter(persons []StoredPerson, f SearchFilters) []StoredPerson {
	if f.IsEmpty() {
		return persons
	}
	result := make([]StoredPerson, 0, len(persons))
	for i := range persons {
		if f.Matches(&persons[i]) {
			result = append(result, persons[i])
		}
	}
	return result
}

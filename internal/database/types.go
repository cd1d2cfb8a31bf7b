package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("person not found")
	// ErrDuplicateNationalID is returned when another record already uses the national id.
	ErrDuplicateNationalID = errors.New("a person with this national id is already registered")
	// ErrInvalidRecord is returned when a record fails validation.
	ErrInvalidRecord = errors.New("invalid person record")
)

// Gender of a registered person.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Status of a missing-person case.
type Status string

const (
	StatusMissing            Status = "missing"
	StatusFound              Status = "found"
	StatusUnderInvestigation Status = "under_investigation"
)

// ParseGender parses a gender, accepting any letter case.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown gender %q", ErrInvalidRecord, s)
}

// ParseStatus parses a case status, accepting any letter case and dashes.
func ParseStatus(s string) (Status, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch st := Status(norm); st {
	case StatusMissing, StatusFound, StatusUnderInvestigation:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidRecord, s)
}

// StoredPerson represents a registered missing person.
type StoredPerson struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	FatherName       string     `json:"father_name"`
	NationalID       string     `json:"national_id"`
	LostLocation     string     `json:"lost_location"`
	LostDate         time.Time  `json:"lost_date"`
	DocumentNumber   string     `json:"document_number,omitempty"`
	DocumentDate     *time.Time `json:"document_date,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	RegistrationDate time.Time  `json:"registration_date"`

	Gender       Gender    `json:"gender,omitempty"`
	Age          int       `json:"age"`
	LastSeenDate time.Time `json:"last_seen_date"`
	Status       Status    `json:"status"`

	// Optional physical description
	Height                 float64 `json:"height,omitempty"` // cm
	Weight                 float64 `json:"weight,omitempty"` // kg
	EyeColor               string  `json:"eye_color,omitempty"`
	HairColor              string  `json:"hair_color,omitempty"`
	DistinguishingFeatures string  `json:"distinguishing_features,omitempty"`

	ContactPerson  string            `json:"contact_person,omitempty"`
	ContactPhone   string            `json:"contact_phone,omitempty"`
	ReporterID     string            `json:"reporter_id,omitempty"`
	AdditionalInfo map[string]string `json:"additional_info,omitempty"`

	Descriptor       []float32         `json:"descriptor,omitempty"`
	DescriptorSource descriptor.Source `json:"descriptor_source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDescriptor reports whether a descriptor of the expected length is stored.
func (p *StoredPerson) HasDescriptor() bool {
	return len(p.Descriptor) == descriptor.Dim
}

// Clone returns a deep copy of p.
func (p *StoredPerson) Clone() StoredPerson {
	cp := *p
	if p.DocumentDate != nil {
		d := *p.DocumentDate
		cp.DocumentDate = &d
	}
	if p.Descriptor != nil {
		cp.Descriptor = append([]float32(nil), p.Descriptor...)
	}
	if p.AdditionalInfo != nil {
		cp.AdditionalInfo = make(map[string]string, len(p.AdditionalInfo))
		for k, v := range p.AdditionalInfo {
			cp.AdditionalInfo[k] = v
		}
	}
	return cp
}

// Normalize trims text fields, fills defaults and validates the record.
// now is used for the registration date and last seen date defaults.
func (p *StoredPerson) Normalize(now time.Time) error {
	for _, f := range []*string{
		&p.Name, &p.FatherName, &p.NationalID, &p.LostLocation, &p.DocumentNumber,
		&p.EyeColor, &p.HairColor, &p.DistinguishingFeatures,
		&p.ContactPerson, &p.ContactPhone, &p.ReporterID,
	} {
		*f = strings.TrimSpace(*f)
	}

	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.FatherName == "" {
		missing = append(missing, "father_name")
	}
	if p.NationalID == "" {
		missing = append(missing, "national_id")
	}
	if p.LostLocation == "" {
		missing = append(missing, "lost_location")
	}
	if p.LostDate.IsZero() {
		missing = append(missing, "lost_date")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRecord, strings.Join(missing, ", "))
	}

	if p.Age < 0 || p.Age > constants.MaxPersonAge {
		return fmt.Errorf("%w: age %d out of range", ErrInvalidRecord, p.Age)
	}
	if p.Height < 0 || p.Weight < 0 {
		return fmt.Errorf("%w: height and weight must not be negative", ErrInvalidRecord)
	}
	if p.Gender != "" {
		g, err := ParseGender(string(p.Gender))
		if err != nil {
			return err
		}
		p.Gender = g
	}
	if p.Status == "" {
		p.Status = StatusMissing
	} else {
		st, err := ParseStatus(string(p.Status))
		if err != nil {
			return err
		}
		p.Status = st
	}
	if p.Descriptor != nil {
		if err := descriptor.Validate(p.Descriptor); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
		}
	}

	// Dates are calendar days, stored as UTC midnight by every backend.
	p.LostDate = truncateToDay(p.LostDate)
	if p.RegistrationDate.IsZero() {
		p.RegistrationDate = truncateToDay(now)
	} else {
		p.RegistrationDate = truncateToDay(p.RegistrationDate)
	}
	if p.LastSeenDate.IsZero() {
		p.LastSeenDate = p.LostDate
	} else {
		p.LastSeenDate = truncateToDay(p.LastSeenDate)
	}
	if p.DocumentDate != nil {
		d := truncateToDay(*p.DocumentDate)
		p.DocumentDate = &d
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Match is a face search result: a person and the similarity score of its
// descriptor against the query. The score is never stored.
type Match struct {
	Person     StoredPerson `json:"person"`
	Confidence float64      `json:"confidence"`
}

// MatchOptions configures a descriptor search.
type MatchOptions struct {
	Threshold float64 // minimum score, exclusive
	Limit     int     // maximum results, 0 for all
	// SynthesizeMissing scores persons without a descriptor using
	// descriptor.FromIdentity instead of skipping them.
	SynthesizeMissing bool
}

// AgeRange is an inclusive age interval in years.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DateRange is an inclusive calendar date interval.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SearchFilters is a conjunction of optional predicates. Zero values disable
// a predicate.
type SearchFilters struct {
	AgeRange  *AgeRange  `json:"age_range,omitempty"`
	Gender    Gender     `json:"gender,omitempty"`
	DateRange *DateRange `json:"date_range,omitempty"`
	Location  string     `json:"location,omitempty"`
	Status    Status     `json:"status,omitempty"`
}

// PersonStats summarizes the registry.
type PersonStats struct {
	Total          int            `json:"total"`
	WithDescriptor int            `json:"with_descriptor"`
	WithImage      int            `json:"with_image"`
	ByStatus       map[Status]int `json:"by_status"`
	ByGender       map[Gender]int `json:"by_gender"`
}

// ComputeStats builds registry statistics from a full listing.
func ComputeStats(persons []StoredPerson) *PersonStats {
	stats := &PersonStats{
		Total:    len(persons),
		ByStatus: make(map[Status]int),
		ByGender: make(map[Gender]int),
	}
	for i := range persons {
		p := &persons[i]
		if p.HasDescriptor() {
			stats.WithDescriptor++
		}
		if p.ImageURL != "" {
			stats.WithImage++
		}
		stats.ByStatus[p.Status]++
		if p.Gender != "" {
			stats.ByGender[p.Gender]++
		}
	}
	return stats
}

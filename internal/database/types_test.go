package database

import (
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

func validPerson() StoredPerson {
	return StoredPerson{
		Name:         "  علي حسن ",
		FatherName:   "حسن علي",
		NationalID:   " 30101021234567",
		LostLocation: "الإسكندرية - المنتزه",
		LostDate:     date("2023-07-15"),
		Age:          9,
	}
}

func TestStoredPerson_Normalize(t *testing.T) {
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	p := validPerson()

	if err := p.Normalize(now); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if p.Name != "علي حسن" || p.NationalID != "30101021234567" {
		t.Errorf("expected trimmed fields, got %q / %q", p.Name, p.NationalID)
	}
	if p.Status != StatusMissing {
		t.Errorf("expected default status missing, got %s", p.Status)
	}
	if !p.RegistrationDate.Equal(date("2024-03-01")) {
		t.Errorf("expected registration date 2024-03-01, got %v", p.RegistrationDate)
	}
	if !p.LastSeenDate.Equal(p.LostDate) {
		t.Errorf("expected last seen date to default to lost date, got %v", p.LastSeenDate)
	}
}

func TestStoredPerson_NormalizeTruncatesDates(t *testing.T) {
	cairo := time.FixedZone("EET", 2*60*60)
	doc := time.Date(2020, 1, 5, 23, 30, 0, 0, cairo)
	p := validPerson()
	p.LostDate = time.Date(2023, 7, 15, 18, 45, 0, 0, cairo)
	p.LastSeenDate = time.Date(2023, 7, 16, 1, 15, 0, 0, cairo)
	p.RegistrationDate = time.Date(2023, 7, 17, 9, 0, 0, 0, time.UTC)
	p.DocumentDate = &doc

	if err := p.Normalize(time.Now()); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	checks := []struct {
		name string
		got  time.Time
		want string
	}{
		{"lost", p.LostDate, "2023-07-15"},
		{"last seen", p.LastSeenDate, "2023-07-16"},
		{"registration", p.RegistrationDate, "2023-07-17"},
		{"document", *p.DocumentDate, "2020-01-05"},
	}
	for _, c := range checks {
		if !c.got.Equal(date(c.want)) || c.got.Location() != time.UTC {
			t.Errorf("%s date = %v, want %s 00:00 UTC", c.name, c.got, c.want)
		}
	}
	if doc.Hour() != 23 {
		t.Error("Normalize must not modify the caller's document date")
	}
}

func TestStoredPerson_NormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *StoredPerson)
	}{
		{"missing name", func(p *StoredPerson) { p.Name = " " }},
		{"missing father name", func(p *StoredPerson) { p.FatherName = "" }},
		{"missing national id", func(p *StoredPerson) { p.NationalID = "" }},
		{"missing location", func(p *StoredPerson) { p.LostLocation = "" }},
		{"missing lost date", func(p *StoredPerson) { p.LostDate = time.Time{} }},
		{"negative age", func(p *StoredPerson) { p.Age = -1 }},
		{"age too high", func(p *StoredPerson) { p.Age = 151 }},
		{"bad gender", func(p *StoredPerson) { p.Gender = "other" }},
		{"bad status", func(p *StoredPerson) { p.Status = "closed" }},
		{"short descriptor", func(p *StoredPerson) { p.Descriptor = []float32{1, 2} }},
		{"negative height", func(p *StoredPerson) { p.Height = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPerson()
			tt.modify(&p)
			err := p.Normalize(time.Now())
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"missing", StatusMissing, true},
		{"FOUND", StatusFound, true},
		{"under-investigation", StatusUnderInvestigation, true},
		{"under_investigation", StatusUnderInvestigation, true},
		{"closed", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if (err == nil) != tt.ok || got != tt.want {
				t.Errorf("ParseStatus(%q) = %q, %v", tt.input, got, err)
			}
		})
	}
}

func TestParseGender(t *testing.T) {
	if g, err := ParseGender(" Female "); err != nil || g != GenderFemale {
		t.Errorf("ParseGender() = %q, %v", g, err)
	}
	if _, err := ParseGender("x"); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestStoredPerson_Clone(t *testing.T) {
	doc := date("2020-01-01")
	p := StoredPerson{
		ID:             "a",
		DocumentDate:   &doc,
		Descriptor:     unitVector(0),
		AdditionalInfo: map[string]string{"school": "x"},
	}

	cp := p.Clone()
	cp.Descriptor[0] = 5
	cp.AdditionalInfo["school"] = "y"
	*cp.DocumentDate = date("1999-01-01")

	if p.Descriptor[0] != 1 || p.AdditionalInfo["school"] != "x" || !p.DocumentDate.Equal(doc) {
		t.Error("Clone() must not share mutable state")
	}
}

func TestComputeStats(t *testing.T) {
	persons := samplePersons()
	persons[0].Descriptor = make([]float32, descriptor.Dim)
	persons[1].ImageURL = "/uploads/x.jpg"

	stats := ComputeStats(persons)

	if stats.Total != 3 || stats.WithDescriptor != 1 || stats.WithImage != 1 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.ByStatus[StatusMissing] != 2 || stats.ByStatus[StatusFound] != 1 {
		t.Errorf("unexpected status counts: %v", stats.ByStatus)
	}
	if stats.ByGender[GenderMale] != 2 || stats.ByGender[GenderFemale] != 1 {
		t.Errorf("unexpected gender counts: %v", stats.ByGender)
	}
}

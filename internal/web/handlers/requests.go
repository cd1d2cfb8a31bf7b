package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
)

// parseDate accepts a calendar date or an RFC 3339 timestamp.
// An empty string yields the zero time.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(constants.DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s must be a date (YYYY-MM-DD)", database.ErrInvalidRecord, field)
}

// personRequest is the JSON body of person create and update requests.
type personRequest struct {
	Name                   string            `json:"name"`
	FatherName             string            `json:"father_name"`
	NationalID             string            `json:"national_id"`
	LostLocation           string            `json:"lost_location"`
	LostDate               string            `json:"lost_date"`
	DocumentNumber         string            `json:"document_number"`
	DocumentDate           string            `json:"document_date"`
	Gender                 string            `json:"gender"`
	Age                    int               `json:"age"`
	LastSeenDate           string            `json:"last_seen_date"`
	Status                 string            `json:"status"`
	Height                 float64           `json:"height"`
	Weight                 float64           `json:"weight"`
	EyeColor               string            `json:"eye_color"`
	HairColor              string            `json:"hair_color"`
	DistinguishingFeatures string            `json:"distinguishing_features"`
	ContactPerson          string            `json:"contact_person"`
	ContactPhone           string            `json:"contact_phone"`
	ReporterID             string            `json:"reporter_id"`
	AdditionalInfo         map[string]string `json:"additional_info"`
	Descriptor             []float32         `json:"descriptor"`
}

// toPerson converts the request into a record. Validation beyond date
// parsing is left to StoredPerson.Normalize.
func (req *personRequest) toPerson() (*database.StoredPerson, error) {
	lost, err := parseDate("lost_date", req.LostDate)
	if err != nil {
		return nil, err
	}
	lastSeen, err := parseDate("last_seen_date", req.LastSeenDate)
	if err != nil {
		return nil, err
	}
	docDate, err := parseDate("document_date", req.DocumentDate)
	if err != nil {
		return nil, err
	}

	p := &database.StoredPerson{
		Name:                   req.Name,
		FatherName:             req.FatherName,
		NationalID:             req.NationalID,
		LostLocation:           req.LostLocation,
		LostDate:               lost,
		DocumentNumber:         req.DocumentNumber,
		Gender:                 database.Gender(req.Gender),
		Age:                    req.Age,
		LastSeenDate:           lastSeen,
		Status:                 database.Status(req.Status),
		Height:                 req.Height,
		Weight:                 req.Weight,
		EyeColor:               req.EyeColor,
		HairColor:              req.HairColor,
		DistinguishingFeatures: req.DistinguishingFeatures,
		ContactPerson:          req.ContactPerson,
		ContactPhone:           req.ContactPhone,
		ReporterID:             req.ReporterID,
		AdditionalInfo:         req.AdditionalInfo,
	}
	if !docDate.IsZero() {
		p.DocumentDate = &docDate
	}
	return p, nil
}

// dateRangeRequest is an inclusive date range with optional bounds.
type dateRangeRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// filterRequest is the JSON body of a filter search.
type filterRequest struct {
	AgeRange  *database.AgeRange `json:"age_range"`
	Gender    string             `json:"gender"`
	DateRange *dateRangeRequest  `json:"date_range"`
	Location  string             `json:"location"`
	Status    string             `json:"status"`
}

// toFilters validates the request and builds search filters.
func (req *filterRequest) toFilters() (database.SearchFilters, error) {
	var f database.SearchFilters

	if req.AgeRange != nil {
		if req.AgeRange.Min < 0 || req.AgeRange.Max < req.AgeRange.Min {
			return f, fmt.Errorf("%w: invalid age range %d-%d", database.ErrInvalidRecord, req.AgeRange.Min, req.AgeRange.Max)
		}
		ar := *req.AgeRange
		f.AgeRange = &ar
	}
	if g := strings.TrimSpace(req.Gender); g != "" {
		gender, err := database.ParseGender(g)
		if err != nil {
			return f, err
		}
		f.Gender = gender
	}
	if req.DateRange != nil {
		start, err := parseDate("date_range.start", req.DateRange.Start)
		if err != nil {
			return f, err
		}
		end, err := parseDate("date_range.end", req.DateRange.End)
		if err != nil {
			return f, err
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			return f, fmt.Errorf("%w: date range ends before it starts", database.ErrInvalidRecord)
		}
		if !start.IsZero() || !end.IsZero() {
			f.DateRange = &database.DateRange{Start: start, End: end}
		}
	}
	f.Location = strings.TrimSpace(req.Location)
	if s := strings.TrimSpace(req.Status); s != "" {
		status, err := database.ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

// parseFilterQuery reads filters from list query parameters: min_age,
// max_age, gender, start_date, end_date, location and status.
func parseFilterQuery(q url.Values) (database.SearchFilters, error) {
	req := filterRequest{
		Gender:   q.Get("gender"),
		Location: q.Get("location"),
		Status:   q.Get("status"),
	}

	minAge, maxAge := q.Get("min_age"), q.Get("max_age")
	if minAge != "" || maxAge != "" {
		ar := database.AgeRange{Min: 0, Max: constants.MaxPersonAge}
		var err error
		if minAge != "" {
			if ar.Min, err = strconv.Atoi(minAge); err != nil {
				return database.SearchFilters{}, fmt.Errorf("%w: min_age must be a number", database.ErrInvalidRecord)
			}
		}
		if maxAge != "" {
			if ar.Max, err = strconv.Atoi(maxAge); err != nil {
				return database.SearchFilters{}, fmt.Errorf("%w: max_age must be a number", database.ErrInvalidRecord)
			}
		}
		req.AgeRange = &ar
	}

	if start, end := q.Get("start_date"), q.Get("end_date"); start != "" || end != "" {
		req.DateRange = &dateRangeRequest{Start: start, End: end}
	}
	return req.toFilters()
}

// parsePagination reads page (1-based) and page_size, clamping the size.
func parsePagination(q url.Values) (page, pageSize int) {
	page, pageSize = 1, constants.DefaultHandlerPageSize
	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil && v > 0 {
		pageSize = min(v, constants.MaxHandlerPageSize)
	}
	return page, pageSize
}

// paginate returns the page of items, or an empty slice past the end.
func paginate[T any](items []T, page, pageSize int) []T {
	// Compare in pages first; (page-1)*pageSize overflows for huge pages.
	if page < 1 || pageSize < 1 || page-1 >= (len(items)+pageSize-1)/pageSize {
		return []T{}
	}
	start := (page - 1) * pageSize
	return items[start:min(start+pageSize, len(items))]
}

// matchOptions builds search options from the configured defaults and
// optional per-request overrides.
func matchOptions(threshold float64, limit int, synthesize bool, thresholdOverride *float64, limitOverride *int) (database.MatchOptions, error) {
	opts := database.MatchOptions{Threshold: threshold, Limit: limit, SynthesizeMissing: synthesize}
	if thresholdOverride != nil {
		if *thresholdOverride < 0 || *thresholdOverride >= 1 {
			return opts, fmt.Errorf("%w: threshold must be in [0, 1)", database.ErrInvalidRecord)
		}
		opts.Threshold = *thresholdOverride
	}
	if limitOverride != nil {
		if *limitOverride < 0 {
			return opts, fmt.Errorf("%w: limit must not be negative", database.ErrInvalidRecord)
		}
		opts.Limit = *limitOverride
	}
	return opts, nil
}

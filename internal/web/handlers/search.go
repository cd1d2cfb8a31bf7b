package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// SearchHandler handles face, descriptor and filter search endpoints
type SearchHandler struct {
	config    *config.Config
	extractor DescriptorExtractor
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(cfg *config.Config, extractor DescriptorExtractor) *SearchHandler {
	return &SearchHandler{
		config:    cfg,
		extractor: extractor,
	}
}

// SearchResponse is the result of a similarity search
type SearchResponse struct {
	Matches   []database.Match  `json:"matches"`
	Count     int               `json:"count"`
	Threshold float64           `json:"threshold"`
	Source    descriptor.Source `json:"source,omitempty"`
}

func (h *SearchHandler) findSimilar(w http.ResponseWriter, r *http.Request, query []float32, opts database.MatchOptions, source descriptor.Source) {
	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}

	matches, err := repo.FindSimilar(r.Context(), query, opts)
	if err != nil {
		respondRepoError(w, err, "search persons")
		return
	}
	if matches == nil {
		matches = []database.Match{}
	}

	respondJSON(w, http.StatusOK, SearchResponse{
		Matches:   matches,
		Count:     len(matches),
		Threshold: opts.Threshold,
		Source:    source,
	})
}

// optionalFloat parses an optional form value
func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optionalInt parses an optional form value
func optionalInt(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Face searches the registry with a descriptor extracted from an uploaded photo
func (h *SearchHandler) Face(w http.ResponseWriter, r *http.Request) {
	upload := readImageUpload(w, r)
	if upload == nil {
		return
	}

	threshold, err := optionalFloat(r.FormValue("threshold"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "threshold must be a number")
		return
	}
	limit, err := optionalInt(r.FormValue("limit"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "limit must be a number")
		return
	}
	opts, err := matchOptions(h.config.Search.Threshold, h.config.Search.Limit, h.config.Search.SynthesizeMissing, threshold, limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := extractDescriptor(w, r, h.extractor, upload.Data)
	if result == nil {
		return
	}

	h.findSimilar(w, r, result.Descriptor, opts, result.Source)
}

// descriptorSearchRequest is the body of a descriptor search
type descriptorSearchRequest struct {
	Descriptor []float32 `json:"descriptor"`
	Threshold  *float64  `json:"threshold"`
	Limit      *int      `json:"limit"`
}

// Descriptor searches the registry with a caller-supplied descriptor
func (h *SearchHandler) Descriptor(w http.ResponseWriter, r *http.Request) {
	var req descriptorSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if err := descriptor.Validate(req.Descriptor); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := matchOptions(h.config.Search.Threshold, h.config.Search.Limit, h.config.Search.SynthesizeMissing, req.Threshold, req.Limit)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.findSimilar(w, r, req.Descriptor, opts, "")
}

// FilterResponse is the result of a filter search
type FilterResponse struct {
	Persons []database.StoredPerson `json:"persons"`
	Count   int                     `json:"count"`
}

// Filters searches the registry by attribute predicates
func (h *SearchHandler) Filters(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	filters, err := req.toFilters()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}
	persons, err := repo.Search(r.Context(), filters)
	if err != nil {
		respondRepoError(w, err, "search persons")
		return
	}
	if persons == nil {
		persons = []database.StoredPerson{}
	}

	respondJSON(w, http.StatusOK, FilterResponse{Persons: persons, Count: len(persons)})
}

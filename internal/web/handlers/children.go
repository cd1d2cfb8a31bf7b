package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/storage"
)

// ChildrenHandler handles the multipart registration form used by the
// reporting frontend
type ChildrenHandler struct {
	config    *config.Config
	store     storage.Store
	extractor DescriptorExtractor
	stats     cacheInvalidator
}

// NewChildrenHandler creates a new children handler. stats may be nil.
func NewChildrenHandler(cfg *config.Config, store storage.Store, extractor DescriptorExtractor, stats cacheInvalidator) *ChildrenHandler {
	return &ChildrenHandler{
		config:    cfg,
		store:     store,
		extractor: extractor,
		stats:     stats,
	}
}

// childFromForm reads the registration form fields. The multipart form
// must already be parsed.
func childFromForm(r *http.Request) (*database.StoredPerson, error) {
	lost, err := parseDate("missingDate", r.FormValue("missingDate"))
	if err != nil {
		return nil, err
	}
	docDate, err := parseDate("documentDate", r.FormValue("documentDate"))
	if err != nil {
		return nil, err
	}

	p := &database.StoredPerson{
		Name:           r.FormValue("childName"),
		FatherName:     r.FormValue("fatherName"),
		NationalID:     r.FormValue("identityNumber"),
		LostLocation:   r.FormValue("missingPlace"),
		LostDate:       lost,
		DocumentNumber: r.FormValue("documentNumber"),
		Gender:         database.Gender(r.FormValue("gender")),
		Status:         database.Status(r.FormValue("status")),
	}
	if !docDate.IsZero() {
		p.DocumentDate = &docDate
	}
	if age := strings.TrimSpace(r.FormValue("age")); age != "" {
		if p.Age, err = strconv.Atoi(age); err != nil {
			return nil, fmt.Errorf("%w: age must be a number", database.ErrInvalidRecord)
		}
	}
	return p, nil
}

// Create registers a child from a multipart form with a required photo.
// A photo without a usable descriptor is still registered.
func (h *ChildrenHandler) Create(w http.ResponseWriter, r *http.Request) {
	upload := readImageUpload(w, r)
	if upload == nil {
		return
	}

	person, err := childFromForm(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}

	if result, err := h.extractor.Extract(r.Context(), upload.Data); err != nil {
		log.Printf("Descriptor extraction failed for %s: %v", sanitizeForLog(upload.Filename), err)
	} else {
		person.Descriptor = result.Descriptor
		person.DescriptorSource = result.Source
	}

	name, err := h.store.Save(r.Context(), upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		log.Printf("Failed to store photo: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}
	person.ImageURL = name

	if err := repo.Add(r.Context(), person); err != nil {
		if delErr := h.store.Delete(r.Context(), name); delErr != nil {
			log.Printf("Failed to delete orphaned photo %s: %v", name, delErr)
		}
		respondRepoError(w, err, "register child")
		return
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}
	log.Printf("Registered child %s with photo %s", person.ID, name)
	respondJSON(w, http.StatusCreated, person)
}

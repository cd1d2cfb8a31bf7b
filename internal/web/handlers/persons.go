package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/kozaktomas/missing-persons/internal/storage"
)

// PersonsHandler handles registry CRUD endpoints
type PersonsHandler struct {
	config    *config.Config
	store     storage.Store
	extractor DescriptorExtractor
	stats     cacheInvalidator
}

// NewPersonsHandler creates a new persons handler. stats may be nil.
func NewPersonsHandler(cfg *config.Config, store storage.Store, extractor DescriptorExtractor, stats cacheInvalidator) *PersonsHandler {
	return &PersonsHandler{
		config:    cfg,
		store:     store,
		extractor: extractor,
		stats:     stats,
	}
}

// PersonListResponse is a page of the registry
type PersonListResponse struct {
	Persons  []database.StoredPerson `json:"persons"`
	Total    int                     `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

func (h *PersonsHandler) invalidate() {
	if h.stats != nil {
		h.stats.InvalidateCache()
	}
}

// List returns the persons matching the query filters, paginated
func (h *PersonsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters, err := parseFilterQuery(q)
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
		respondRepoError(w, err, "list persons")
		return
	}

	page, pageSize := parsePagination(q)
	respondJSON(w, http.StatusOK, PersonListResponse{
		Persons:  paginate(persons, page, pageSize),
		Total:    len(persons),
		Page:     page,
		PageSize: pageSize,
	})
}

// Get returns a single person
func (h *PersonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}

	person, err := repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondRepoError(w, err, "get person")
		return
	}
	if person == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, person)
}

// Create registers a person from a JSON body
func (h *PersonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	person, err := req.toPerson()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Descriptor != nil {
		person.Descriptor = req.Descriptor
		person.DescriptorSource = descriptor.SourceManual
	}

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}
	if err := repo.Add(r.Context(), person); err != nil {
		respondRepoError(w, err, "create person")
		return
	}

	h.invalidate()
	log.Printf("Registered person %s", person.ID)
	respondJSON(w, http.StatusCreated, person)
}

// Update replaces a person. The stored descriptor and image are kept when
// the request does not carry a descriptor.
func (h *PersonsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	person, err := req.toPerson()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}
	existing, err := repo.Get(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get person")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	person.ID = id
	person.ImageURL = existing.ImageURL
	person.RegistrationDate = existing.RegistrationDate
	if req.Descriptor != nil {
		person.Descriptor = req.Descriptor
		person.DescriptorSource = descriptor.SourceManual
	} else {
		person.Descriptor = existing.Descriptor
		person.DescriptorSource = existing.DescriptorSource
	}

	if err := repo.Update(r.Context(), person); err != nil {
		respondRepoError(w, err, "update person")
		return
	}

	h.invalidate()
	respondJSON(w, http.StatusOK, person)
}

// Delete removes a person and, best effort, the stored photo
func (h *PersonsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}
	existing, err := repo.Get(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get person")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	if err := repo.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err, "delete person")
		return
	}
	h.removePhoto(r, existing.ImageURL)

	h.invalidate()
	respondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// removePhoto deletes a stored photo. Image references that are not store
// names, such as external URLs from imports, are left alone.
func (h *PersonsHandler) removePhoto(r *http.Request, name string) {
	if h.store == nil || name == "" || storage.ValidateName(name) != nil {
		return
	}
	if err := h.store.Delete(r.Context(), name); err != nil {
		log.Printf("Failed to delete photo %s: %v", sanitizeForLog(name), err)
	}
}

// PhotoResponse is returned after a photo upload
type PhotoResponse struct {
	Person *database.StoredPerson `json:"person"`
	Source descriptor.Source      `json:"source"`
}

// Photo stores a new photo for a person and recomputes its descriptor
func (h *PersonsHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}
	existing, err := repo.Get(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get person")
		return
	}
	if existing == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	upload := readImageUpload(w, r)
	if upload == nil {
		return
	}
	result := extractDescriptor(w, r, h.extractor, upload.Data)
	if result == nil {
		return
	}

	name, err := h.store.Save(r.Context(), upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		log.Printf("Failed to store photo: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to store photo")
		return
	}

	// Descriptor first: a failed image update can put the old one back, and
	// the record never points at a photo its descriptor was not taken from.
	if err := repo.SetDescriptor(r.Context(), id, result.Descriptor, result.Source); err != nil {
		h.removePhoto(r, name)
		respondRepoError(w, err, "update descriptor")
		return
	}
	if err := repo.SetImage(r.Context(), id, name); err != nil {
		if rerr := repo.SetDescriptor(r.Context(), id, existing.Descriptor, existing.DescriptorSource); rerr != nil {
			log.Printf("Failed to restore descriptor of person %s: %v", sanitizeForLog(id), rerr)
		}
		h.removePhoto(r, name)
		respondRepoError(w, err, "update photo")
		return
	}
	if existing.ImageURL != name {
		h.removePhoto(r, existing.ImageURL)
	}

	updated, err := repo.Get(r.Context(), id)
	if err != nil {
		respondRepoError(w, err, "get person")
		return
	}
	if updated == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}

	h.invalidate()
	log.Printf("Updated photo of person %s (%s descriptor)", sanitizeForLog(id), result.Source)
	respondJSON(w, http.StatusOK, PhotoResponse{Person: updated, Source: result.Source})
}

package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/missing-persons/internal/storage"
)

// UploadsHandler serves stored photos
type UploadsHandler struct {
	store storage.Store
}

// NewUploadsHandler creates a new uploads handler
func NewUploadsHandler(store storage.Store) *UploadsHandler {
	return &UploadsHandler{store: store}
}

// Get streams a stored photo by name
func (h *UploadsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rc, obj, err := h.store.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			respondError(w, http.StatusNotFound, "photo not found")
			return
		}
		log.Printf("Failed to open photo %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusInternalServerError, "failed to open photo")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, rc)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/kozaktomas/missing-persons/internal/storage"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// multipartOverhead leaves room for form fields and boundaries next to the image.
const multipartOverhead = 1 << 20

// DescriptorExtractor computes face descriptors from image bytes.
type DescriptorExtractor interface {
	Extract(ctx context.Context, imageData []byte) (*descriptor.Result, error)
	HasDetector() bool
}

// cacheInvalidator is notified when the registry changes.
type cacheInvalidator interface {
	InvalidateCache()
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondRepoError maps registry errors to HTTP responses.
func respondRepoError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "person not found")
	case errors.Is(err, database.ErrDuplicateNationalID):
		respondError(w, http.StatusConflict, database.ErrDuplicateNationalID.Error())
	case errors.Is(err, database.ErrInvalidRecord), errors.Is(err, descriptor.ErrDimensionMismatch):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("Failed to %s: %v", action, err)
		respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// getPersonRepository resolves the registry backend or writes a 500.
func getPersonRepository(w http.ResponseWriter, r *http.Request) database.PersonRepository {
	repo, err := database.GetPersonRepository(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "registry not available")
		return nil
	}
	return repo
}

// imageUpload is a photo read from a multipart request.
type imageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// readImageUpload parses a multipart request and reads its image field.
// It writes the error response itself and returns nil on failure.
func readImageUpload(w http.ResponseWriter, r *http.Request) *imageUpload {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, http.StatusRequestEntityTooLarge, "image is too large")
			return nil
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return nil
	}

	file, header, err := r.FormFile(constants.MultipartImageField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "no image uploaded")
		return nil
	}
	defer file.Close()

	if header.Size > constants.MaxUploadSize {
		respondError(w, http.StatusRequestEntityTooLarge, "image is too large")
		return nil
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read image")
		return nil
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "image is empty")
		return nil
	}

	// Browsers send a generic type for some formats, sniff those.
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = descriptor.DetectMIMEType(data)
	}
	if err := storage.CheckContentType(contentType); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil
	}

	return &imageUpload{Filename: header.Filename, ContentType: contentType, Data: data}
}

// extractDescriptor runs the extractor and writes the error response on failure.
func extractDescriptor(w http.ResponseWriter, r *http.Request, ext DescriptorExtractor, data []byte) *descriptor.Result {
	result, err := ext.Extract(r.Context(), data)
	if err == nil {
		return result
	}
	if errors.Is(err, descriptor.ErrUndecodableImage) || errors.Is(err, descriptor.ErrEmptyImage) {
		respondError(w, http.StatusBadRequest, "unsupported or corrupt image")
		return nil
	}
	log.Printf("Descriptor extraction failed: %v", err)
	respondError(w, http.StatusInternalServerError, "failed to extract descriptor")
	return nil
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

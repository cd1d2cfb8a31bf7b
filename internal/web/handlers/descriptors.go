package handlers

import (
	"net/http"
)

// DescriptorsHandler exposes descriptor extraction without touching the registry
type DescriptorsHandler struct {
	extractor DescriptorExtractor
}

// NewDescriptorsHandler creates a new descriptors handler
func NewDescriptorsHandler(extractor DescriptorExtractor) *DescriptorsHandler {
	return &DescriptorsHandler{extractor: extractor}
}

// Extract returns the descriptor of an uploaded photo
func (h *DescriptorsHandler) Extract(w http.ResponseWriter, r *http.Request) {
	upload := readImageUpload(w, r)
	if upload == nil {
		return
	}
	result := extractDescriptor(w, r, h.extractor, upload.Data)
	if result == nil {
		return
	}
	respondJSON(w, http.StatusOK, result)
}

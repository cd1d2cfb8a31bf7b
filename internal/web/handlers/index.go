package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/missing-persons/internal/database"
)

// IndexHandler handles HNSW index maintenance
type IndexHandler struct {
	stats cacheInvalidator
}

// NewIndexHandler creates a new index handler. stats may be nil.
func NewIndexHandler(stats cacheInvalidator) *IndexHandler {
	return &IndexHandler{stats: stats}
}

// RebuildIndexResponse represents the response from rebuilding the HNSW index
type RebuildIndexResponse struct {
	Success    bool  `json:"success"`
	Count      int   `json:"count"`
	DurationMs int64 `json:"duration_ms"`
}

// Rebuild rebuilds the in-memory HNSW index from the registry and persists it
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	rebuilder := database.GetHNSWRebuilder()
	if rebuilder == nil || !rebuilder.IsHNSWEnabled() {
		respondError(w, http.StatusBadRequest, "HNSW index is not enabled")
		return
	}

	if err := rebuilder.RebuildHNSW(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("failed to rebuild HNSW index: %v", err))
		return
	}
	if err := rebuilder.SaveHNSWIndex(); err != nil {
		// The index is usable in memory
		log.Printf("Warning: failed to save HNSW index to disk: %v", err)
	}

	if h.stats != nil {
		h.stats.InvalidateCache()
	}
	respondJSON(w, http.StatusOK, RebuildIndexResponse{
		Success:    true,
		Count:      rebuilder.HNSWCount(),
		DurationMs: time.Since(startTime).Milliseconds(),
	})
}

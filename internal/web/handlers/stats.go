package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
)

// statsCache holds cached stats with expiry
type statsCache struct {
	mu        sync.RWMutex
	data      *StatsResponse
	expiresAt time.Time
}

func (c *statsCache) get() (*StatsResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *StatsResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(constants.StatsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	cache statsCache
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{}
}

// InvalidateCache clears the cached stats so the next request computes fresh data
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// StatsResponse represents the statistics response
type StatsResponse struct {
	database.PersonStats
	Backend     string `json:"backend"`
	HNSWEnabled bool   `json:"hnsw_enabled"`
	HNSWCount   int    `json:"hnsw_count"`
}

// Get returns registry statistics
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	repo := getPersonRepository(w, r)
	if repo == nil {
		return
	}

	stats, err := repo.Stats(r.Context())
	if err != nil {
		respondRepoError(w, err, "compute stats")
		return
	}

	resp := &StatsResponse{PersonStats: *stats, Backend: database.BackendName()}
	if rebuilder := database.GetHNSWRebuilder(); rebuilder != nil && rebuilder.IsHNSWEnabled() {
		resp.HNSWEnabled = true
		resp.HNSWCount = rebuilder.HNSWCount()
	}

	h.cache.set(resp)
	respondJSON(w, http.StatusOK, resp)
}

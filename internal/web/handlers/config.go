package handlers

import (
	"net/http"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config    *config.Config
	extractor DescriptorExtractor
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config, extractor DescriptorExtractor) *ConfigHandler {
	return &ConfigHandler{
		config:    cfg,
		extractor: extractor,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Backend           string                 `json:"backend"`
	MatchThreshold    float64                `json:"match_threshold"`
	MatchLimit        int                    `json:"match_limit"`
	SynthesizeMissing bool                   `json:"synthesize_missing"`
	DetectorEnabled   bool                   `json:"detector_enabled"`
	DescriptorDim     int                    `json:"descriptor_dim"`
	MaxUploadSize     int64                  `json:"max_upload_size"`
	HNSWEnabled       bool                   `json:"hnsw_enabled"`
	StorageBackend    string                 `json:"storage_backend"`
	DescriptorCache   *descriptor.CacheStats `json:"descriptor_cache,omitempty"`
}

// cacheStatser is implemented by caching extractors
type cacheStatser interface {
	Stats() descriptor.CacheStats
}

// Get returns the effective configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	response := ConfigResponse{
		Backend:           database.BackendName(),
		MatchThreshold:    h.config.Search.Threshold,
		MatchLimit:        h.config.Search.Limit,
		SynthesizeMissing: h.config.Search.SynthesizeMissing,
		DescriptorDim:     descriptor.Dim,
		MaxUploadSize:     constants.MaxUploadSize,
		StorageBackend:    h.config.Storage.Backend,
	}
	if response.StorageBackend == "" {
		response.StorageBackend = "local"
	}
	if h.extractor != nil {
		response.DetectorEnabled = h.extractor.HasDetector()
		if cs, ok := h.extractor.(cacheStatser); ok {
			stats := cs.Stats()
			response.DescriptorCache = &stats
		}
	}
	if rebuilder := database.GetHNSWRebuilder(); rebuilder != nil {
		response.HNSWEnabled = rebuilder.IsHNSWEnabled()
	}

	respondJSON(w, http.StatusOK, response)
}

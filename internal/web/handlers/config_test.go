package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/mock"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

func TestConfigHandler_Get(t *testing.T) {
	setupMockRepository(t)
	cfg := testConfig()
	cfg.Search.Threshold = 0.45
	cfg.Search.SynthesizeMissing = true
	handler := NewConfigHandler(cfg, testExtractor())

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response ConfigResponse
	parseJSONResponse(t, recorder, &response)

	if response.Backend != "mock" {
		t.Errorf("expected backend 'mock', got '%s'", response.Backend)
	}
	if response.MatchThreshold != 0.45 {
		t.Errorf("expected match_threshold=0.45, got %v", response.MatchThreshold)
	}
	if !response.SynthesizeMissing {
		t.Error("expected synthesize_missing to be true")
	}
	if response.DetectorEnabled {
		t.Error("expected detector_enabled to be false")
	}
	if response.DescriptorDim != 128 {
		t.Errorf("expected descriptor_dim=128, got %d", response.DescriptorDim)
	}
	if response.StorageBackend != "local" {
		t.Errorf("expected storage_backend 'local', got '%s'", response.StorageBackend)
	}
	if response.DescriptorCache != nil {
		t.Error("expected no descriptor cache stats for a plain extractor")
	}
	if response.HNSWEnabled {
		t.Error("expected hnsw_enabled to be false without a rebuilder")
	}
}

func TestConfigHandler_Get_CacheAndHNSW(t *testing.T) {
	setupMockRepository(t)
	database.RegisterHNSWRebuilder(&mock.MockHNSWRebuilder{Enabled: true})
	cached := descriptor.NewCachedExtractor(testExtractor(), time.Minute)
	handler := NewConfigHandler(testConfig(), cached)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var response ConfigResponse
	parseJSONResponse(t, recorder, &response)
	if response.DescriptorCache == nil {
		t.Fatal("expected descriptor cache stats")
	}
	if !response.HNSWEnabled {
		t.Error("expected hnsw_enabled to be true")
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/database/mock"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
	"github.com/kozaktomas/missing-persons/internal/storage"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{
			Threshold: constants.DefaultMatchThreshold,
			Limit:     constants.DefaultMatchLimit,
		},
		Storage: config.StorageConfig{Backend: "local"},
		Auth: config.AuthConfig{
			Username: "operator",
			Password: "s3cret",
		},
	}
}

// setupMockRepository registers a fresh mock registry as the active backend
func setupMockRepository(t *testing.T) *mock.MockPersonRepository {
	t.Helper()
	repo := mock.NewMockPersonRepository()
	database.RegisterPersonBackend("mock", func() database.PersonRepository { return repo })
	t.Cleanup(database.ResetBackends)
	return repo
}

// testStore creates a local photo store in a temporary directory
func testStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	return testStoreIn(t, t.TempDir())
}

// testStoreIn creates a local photo store in dir
func testStoreIn(t *testing.T, dir string) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

// testExtractor creates an extractor without a detector and a fixed clock
func testExtractor() *descriptor.Extractor {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return descriptor.NewExtractor(descriptor.WithClock(func() time.Time { return fixed }))
}

// stubExtractor returns a fixed result or error
type stubExtractor struct {
	result *descriptor.Result
	err    error
	calls  int
}

func (s *stubExtractor) Extract(_ context.Context, _ []byte) (*descriptor.Result, error) {
	s.calls++
	return s.result, s.err
}

func (s *stubExtractor) HasDetector() bool { return false }

// countingInvalidator counts cache invalidations
type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) InvalidateCache() { c.calls++ }

// testPNG encodes a small image filled with c
func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// unitDescriptor returns a descriptor with a single non-zero component
func unitDescriptor(axis int) []float32 {
	d := make([]float32, descriptor.Dim)
	d[axis] = 1
	return d
}

// testPerson returns a valid person record
func testPerson(name, nationalID string) database.StoredPerson {
	return database.StoredPerson{
		Name:         name,
		FatherName:   "Father of " + name,
		NationalID:   nationalID,
		LostLocation: "Aleppo",
		LostDate:     time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC),
		Age:          9,
		Gender:       database.GenderMale,
	}
}

// multipartRequest builds a multipart request with form fields and an
// optional image part
func multipartRequest(t *testing.T, method, path string, fields map[string]string, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+constants.MultipartImageField+`"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		part.Write(data)
	}
	writer.Close()

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// jsonRequest builds a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

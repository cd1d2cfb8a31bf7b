package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/web/middleware"
	"github.com/spf13/viper"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, *middleware.SessionManager) {
	t.Helper()
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return NewAuthHandler(testConfig(), sm), sm
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler, sm := newTestAuthHandler(t)

	body := bytes.NewBufferString(`{"username": "operator", "password": "s3cret"}`)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)

	if !response.Success {
		t.Error("expected success to be true")
	}
	if response.SessionID == "" {
		t.Fatal("expected session_id to be set")
	}
	if response.ExpiresAt == "" {
		t.Error("expected expires_at to be set")
	}

	session := sm.GetSession(response.SessionID)
	if session == nil {
		t.Fatal("expected session to be stored")
	}
	if session.Username != "operator" {
		t.Errorf("expected username 'operator', got '%s'", session.Username)
	}

	cookies := recorder.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("expected session cookie to be set")
	}
}

func TestAuthHandler_Login_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"username": "", "password": "s3cret"}`},
		{"missing password", `{"username": "operator", "password": ""}`},
		{"missing both", `{"username": "", "password": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestAuthHandler(t)

			req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			recorder := httptest.NewRecorder()

			handler.Login(recorder, req)

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, "username and password are required")
		})
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{invalid json}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid request body")
}

func TestAuthHandler_Login_WrongCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username": "operator", "password": "nope"}`},
		{"wrong username", `{"username": "admin", "password": "s3cret"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := newTestAuthHandler(t)

			req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(tt.body))
			recorder := httptest.NewRecorder()

			handler.Login(recorder, req)

			assertStatusCode(t, recorder, http.StatusUnauthorized)

			var response LoginResponse
			parseJSONResponse(t, recorder, &response)
			if response.Success {
				t.Error("expected success to be false")
			}
			if response.Error != "invalid credentials" {
				t.Errorf("expected error 'invalid credentials', got '%s'", response.Error)
			}
		})
	}
}

func TestAuthHandler_Login_EmptyConfiguredPassword(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Password = ""
	sm := middleware.NewSessionManager("test-secret", nil)
	defer sm.Stop()
	handler := NewAuthHandler(cfg, sm)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"username": "operator", "password": "x"}`))
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestAuthHandler_Login_DefaultConfigRefusesAdmin(t *testing.T) {
	t.Setenv("AUTH_USERNAME", "")
	t.Setenv("AUTH_PASSWORD", "")
	sm := middleware.NewSessionManager("test-secret", nil)
	defer sm.Stop()
	handler := NewAuthHandler(config.LoadFrom(viper.New()), sm)

	req := httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{"username": "admin", "password": "admin"}`))
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	handler, sm := newTestAuthHandler(t)

	session, err := sm.CreateSession("operator")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder := httptest.NewRecorder()

	handler.Logout(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var response map[string]bool
	parseJSONResponse(t, recorder, &response)
	if !response["success"] {
		t.Error("expected success to be true")
	}

	if sm.GetSession(session.ID) != nil {
		t.Error("expected session to be deleted")
	}
}

func TestAuthHandler_Logout_NoSession(t *testing.T) {
	handler, _ := newTestAuthHandler(t)

	req := httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	recorder := httptest.NewRecorder()

	handler.Logout(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
}

func TestAuthHandler_Status(t *testing.T) {
	handler, sm := newTestAuthHandler(t)

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
		recorder := httptest.NewRecorder()

		handler.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var response StatusResponse
		parseJSONResponse(t, recorder, &response)
		if response.Authenticated {
			t.Error("expected authenticated to be false")
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		session, _ := sm.CreateSession("operator")

		req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		recorder := httptest.NewRecorder()

		handler.Status(recorder, req)

		assertStatusCode(t, recorder, http.StatusOK)
		var response StatusResponse
		parseJSONResponse(t, recorder, &response)
		if !response.Authenticated {
			t.Error("expected authenticated to be true")
		}
		if response.Username != "operator" {
			t.Errorf("expected username 'operator', got '%s'", response.Username)
		}
		if response.ExpiresAt == "" {
			t.Error("expected expires_at to be set")
		}
	})
}

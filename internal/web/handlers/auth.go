package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/web/middleware"
)

// AuthHandler logs the operator in and out. There is a single operator
// account, taken from the configuration.
type AuthHandler struct {
	operator config.AuthConfig
	sessions *middleware.SessionManager
}

func NewAuthHandler(cfg *config.Config, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{operator: cfg.Auth, sessions: sm}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by Login; SessionID doubles as a bearer token.
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusResponse reports the caller's session.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// matches compares in constant time. An unconfigured account never matches.
func (h *AuthHandler) matches(c credentials) bool {
	if h.operator.Validate() != nil {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(c.Username), []byte(h.operator.Username))
	passOK := subtle.ConstantTimeCompare([]byte(c.Password), []byte(h.operator.Password))
	return userOK&passOK == 1
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if c.Username == "" || c.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !h.matches(c) {
		log.Printf("Failed login for %q", sanitizeForLog(c.Username))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: "invalid credentials"})
		return
	}

	session, err := h.sessions.CreateSession(c.Username)
	if err != nil {
		log.Printf("Failed to create session: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessions.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout ends the current session, if any, and always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetSessionFromRequest(r); session != nil {
		h.sessions.DeleteSession(session.ID)
	}
	h.sessions.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      session.Username,
		ExpiresAt:     session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

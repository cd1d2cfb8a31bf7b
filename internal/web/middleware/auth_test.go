package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	sm := NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return sm
}

func findCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionManager_Lifecycle(t *testing.T) {
	sm := newTestManager(t)

	session, err := sm.CreateSession("admin")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == "" || session.Username != "admin" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Error("new session is already expired")
	}

	if got := sm.GetSession(session.ID); got == nil || got.Username != "admin" {
		t.Errorf("GetSession() = %+v, want the admin session", got)
	}
	if sm.GetSession("nonexistent-id") != nil {
		t.Error("GetSession() returned a session for an unknown id")
	}

	sm.DeleteSession(session.ID)
	if sm.GetSession(session.ID) != nil {
		t.Error("session still present after DeleteSession()")
	}
}

func TestSessionManager_GetSessionFromRequest(t *testing.T) {
	sm := newTestManager(t)
	session, _ := sm.CreateSession("admin")

	w := httptest.NewRecorder()
	sm.SetSessionCookie(w, httptest.NewRequest("GET", "/", nil), session)
	signed := findCookie(t, w)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		wantID  string
	}{
		{"signed cookie", func(r *http.Request) { r.AddCookie(signed) }, session.ID},
		{"bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+session.ID) }, session.ID},
		{"forged signature", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID + ".forged"})
		}, ""},
		{"unknown bearer token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, ""},
		{"nothing", func(*http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			tt.prepare(req)

			got := sm.GetSessionFromRequest(req)
			switch {
			case tt.wantID == "" && got != nil:
				t.Errorf("expected no session, got %s", got.ID)
			case tt.wantID != "" && (got == nil || got.ID != tt.wantID):
				t.Errorf("expected session %s, got %+v", tt.wantID, got)
			}
		})
	}
}

func TestSessionManager_ClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	newTestManager(t).ClearSessionCookie(w)

	if c := findCookie(t, w); c.MaxAge != -1 {
		t.Errorf("MaxAge = %d, want -1", c.MaxAge)
	}
}

func TestRequireAuth(t *testing.T) {
	sm := newTestManager(t)
	session, _ := sm.CreateSession("admin")

	var seen *Session
	protected := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid session", func(t *testing.T) {
		seen = nil
		req := httptest.NewRequest("GET", "/persons", nil)
		req.Header.Set("Authorization", "Bearer "+session.ID)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNoContent)
		}
		if seen == nil || seen.Username != "admin" {
			t.Errorf("handler saw session %+v", seen)
		}
	})

	t.Run("no session", func(t *testing.T) {
		seen = nil
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, httptest.NewRequest("GET", "/persons", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		if seen != nil {
			t.Error("handler ran without a session")
		}
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Error("expected a WWW-Authenticate challenge")
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != "unauthorized" {
			t.Errorf("unexpected body %q", w.Body.String())
		}
	})
}

func TestSessionFromContext(t *testing.T) {
	session := &Session{ID: "test123", Username: "admin"}

	if got := SessionFromContext(WithSession(context.Background(), session)); got != session {
		t.Errorf("SessionFromContext() = %+v, want %+v", got, session)
	}
	if SessionFromContext(context.Background()) != nil {
		t.Error("SessionFromContext() should return nil for empty context")
	}
}

func TestSession_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(&Session{
		ID:        "test123",
		Username:  "admin",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if fields["session_id"] != "test123" {
		t.Errorf("session_id = %v, want test123", fields["session_id"])
	}
	if _, ok := fields["created_at"]; ok {
		t.Error("created_at should not be exposed")
	}
}

func TestSessionManager_SecureCookieBehindProxy(t *testing.T) {
	sm := NewSessionManager("test-secret", nil)
	defer sm.Stop()
	session, _ := sm.CreateSession("admin")

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	sm.SetSessionCookie(w, r, session)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || !cookies[0].Secure {
		t.Errorf("expected a single secure cookie, got %+v", cookies)
	}
}

// memoryStore is a SessionStore backed by a map
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]StoredSession
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]StoredSession)}
}

func (m *memoryStore) Save(_ context.Context, id, username string, createdAt, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = StoredSession{ID: id, Username: username, CreatedAt: createdAt, ExpiresAt: expiresAt}
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (*StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || time.Now().After(s.ExpiresAt) {
		return nil, nil
	}
	return &s, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if time.Now().After(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func TestSessionManager_PersistentStore(t *testing.T) {
	store := newMemoryStore()

	sm := NewSessionManager("test-secret", store)
	session, err := sm.CreateSession("admin")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	sm.Stop()

	// A new manager (e.g. after a restart) finds the session in the store.
	restarted := NewSessionManager("test-secret", store)
	defer restarted.Stop()

	retrieved := restarted.GetSession(session.ID)
	if retrieved == nil {
		t.Fatal("GetSession() returned nil for persisted session")
	}
	if retrieved.Username != "admin" {
		t.Errorf("Username = %s, want admin", retrieved.Username)
	}

	restarted.DeleteSession(session.ID)
	if got, _ := store.Get(context.Background(), session.ID); got != nil {
		t.Error("session should be removed from the store")
	}
}

package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/missing-persons/internal/config"
	"github.com/kozaktomas/missing-persons/internal/constants"
	"github.com/kozaktomas/missing-persons/internal/storage"
	"github.com/kozaktomas/missing-persons/internal/web/handlers"
	"github.com/kozaktomas/missing-persons/internal/web/middleware"
)

// Server represents the web server
type Server struct {
	config         *config.Config
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	store          storage.Store
	extractor      handlers.DescriptorExtractor
	searchLimiter  *middleware.RateLimiter
}

// NewServer creates a new web server. sessionStore may be nil, in which
// case sessions live in memory only.
func NewServer(cfg *config.Config, port int, host string, sessionSecret string, sessionStore middleware.SessionStore, store storage.Store, extractor handlers.DescriptorExtractor) *Server {
	r := chi.NewRouter()

	sessionManager := middleware.NewSessionManager(sessionSecret, sessionStore)

	s := &Server{
		config:         cfg,
		router:         r,
		sessionManager: sessionManager,
		store:          store,
		extractor:      extractor,
		searchLimiter:  middleware.NewRateLimiter(constants.SearchRatePerSecond, constants.SearchRateBurst),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	if cfg.Web.TrustProxy {
		// Forwarding headers are client-controlled without a proxy in front.
		r.Use(chiMiddleware.RealIP)
	}
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins, cfg.Web.AllowLocalhost))

	s.setupRoutes(sessionManager)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute, // photo uploads
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if s.sessionManager != nil {
		s.sessionManager.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SessionManager returns the session manager for testing
func (s *Server) SessionManager() *middleware.SessionManager {
	return s.sessionManager
}

package web

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/missing-persons/internal/web/handlers"
	"github.com/kozaktomas/missing-persons/internal/web/middleware"
	"github.com/kozaktomas/missing-persons/internal/web/static"
)

func (s *Server) setupRoutes(sessionManager *middleware.SessionManager) {
	statsHandler := handlers.NewStatsHandler()
	authHandler := handlers.NewAuthHandler(s.config, sessionManager)
	personsHandler := handlers.NewPersonsHandler(s.config, s.store, s.extractor, statsHandler)
	childrenHandler := handlers.NewChildrenHandler(s.config, s.store, s.extractor, statsHandler)
	searchHandler := handlers.NewSearchHandler(s.config, s.extractor)
	descriptorsHandler := handlers.NewDescriptorsHandler(s.extractor)
	configHandler := handlers.NewConfigHandler(s.config, s.extractor)
	indexHandler := handlers.NewIndexHandler(statsHandler)
	uploadsHandler := handlers.NewUploadsHandler(s.store)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// All other routes require authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessionManager))

			// Registry
			r.Get("/persons", personsHandler.List)
			r.Post("/persons", personsHandler.Create)
			r.Get("/persons/{id}", personsHandler.Get)
			r.Put("/persons/{id}", personsHandler.Update)
			r.Delete("/persons/{id}", personsHandler.Delete)
			r.Put("/persons/{id}/photo", personsHandler.Photo)

			// Reporting form upload
			r.Post("/children", childrenHandler.Create)

			// Search
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(s.searchLimiter))
				r.Post("/search/face", searchHandler.Face)
				r.Post("/search/descriptor", searchHandler.Descriptor)
				r.Post("/search/filters", searchHandler.Filters)
				r.Post("/descriptors/extract", descriptorsHandler.Extract)
			})

			r.Get("/stats", statsHandler.Get)
			r.Get("/config", configHandler.Get)
			r.Post("/index/rebuild", indexHandler.Rebuild)
		})
	})

	// Stored photos
	s.router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager))
		r.Get("/uploads/{name}", uploadsHandler.Get)
	})

	// Serve static files for frontend (SPA)
	s.router.Get("/*", s.serveSPA)
}

// contentTypes maps frontend asset extensions to media types
var contentTypes = map[string]string{
	".html":  "text/html; charset=utf-8",
	".css":   "text/css; charset=utf-8",
	".js":    "application/javascript; charset=utf-8",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
	".woff":  "font/woff",
}

// serveSPA serves the single-page application. Unknown non-asset paths get
// index.html so client-side routing works.
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	fs := static.GetFileSystem()
	p := r.URL.Path
	if p == "/" {
		p = "/index.html"
	}

	if f, err := fs.Open(p); err == nil {
		defer f.Close()
		if stat, err := f.Stat(); err == nil && !stat.IsDir() {
			contentType, ok := contentTypes[strings.ToLower(path.Ext(p))]
			if !ok {
				contentType = "application/octet-stream"
			}
			w.Header().Set("Content-Type", contentType)
			if strings.HasPrefix(p, "/assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			w.WriteHeader(http.StatusOK)
			io.Copy(w, f)
			return
		}
	}

	if strings.HasPrefix(p, "/assets/") {
		http.NotFound(w, r)
		return
	}

	indexFile, err := fs.Open("/index.html")
	if err != nil {
		http.Error(w, "frontend not available", http.StatusNotFound)
		return
	}
	defer indexFile.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, indexFile)
}

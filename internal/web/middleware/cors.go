package middleware

import (
	"net/http"
	"strings"
)

// originPolicy decides which browser origins may call the API with credentials.
type originPolicy struct {
	allowed        map[string]struct{}
	allowLocalhost bool
}

func newOriginPolicy(origins []string, allowLocalhost bool) *originPolicy {
	p := &originPolicy{
		allowed:        make(map[string]struct{}, len(origins)),
		allowLocalhost: allowLocalhost,
	}
	for _, o := range origins {
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			p.allowed[o] = struct{}{}
		}
	}
	return p
}

// isLocalhostOrigin returns true for http(s)://localhost with or without a port.
func isLocalhostOrigin(origin string) bool {
	for _, base := range []string{"http://localhost", "https://localhost"} {
		if rest, ok := strings.CutPrefix(origin, base); ok && (rest == "" || strings.HasPrefix(rest, ":")) {
			return true
		}
	}
	return false
}

func (p *originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if p.allowLocalhost && isLocalhostOrigin(origin) {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// CORS returns middleware that answers cross-origin requests from the given
// origins. With allowLocalhost, any localhost origin is accepted as well.
func CORS(origins []string, allowLocalhost bool) func(http.Handler) http.Handler {
	policy := newOriginPolicy(origins, allowLocalhost)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if policy.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders sets a restrictive content security policy. Photos are
// served from the same origin, so img-src needs nothing beyond self.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy",
				"default-src 'self'; img-src 'self' data: blob:; "+
					"style-src 'self' 'unsafe-inline'; frame-ancestors 'none'")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

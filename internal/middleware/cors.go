// Package middleware provides HTTP middleware for the Valentine API.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSOptions configures CORS.
type CORSOptions struct {
	AllowedOrigins []string
	// AllowedHeaders are accepted in addition to Content-Type.
	AllowedHeaders []string
	MaxAge         time.Duration
}

// CORS returns middleware that handles CORS headers and preflight requests.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	headers := strings.Join(append([]string{"Content-Type"}, opts.AllowedHeaders...), ", ")
	maxAge := strconv.Itoa(int(opts.MaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			w.Header().Add("Vary", "Origin")

			wildcard, explicit := matchOrigin(opts.AllowedOrigins, origin)
			if origin != "" && (wildcard || explicit) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if opts.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}
				// Credentials only for explicit origins; echoing a wildcard
				// match with credentials enables CSRF.
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func matchOrigin(allowed []string, origin string) (wildcard, explicit bool) {
	for _, o := range allowed {
		switch o {
		case "*":
			wildcard = true
		case origin:
			explicit = true
		}
	}
	return wildcard, explicit
}

package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// CORSConfig controls which origins may call queryd's read API from a
// browser (decision-capture dashboards, typically served from a different
// origin than queryd itself).
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         time.Duration
}

// DefaultCORSConfig permits GET-only, unauthenticated reads from any
// origin; queryd has no cookie-based session to protect.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"X-Request-ID"},
		MaxAge:         5 * time.Minute,
	}
}

// CORS returns chi-compatible CORS middleware built on go-chi/cors.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: cfg.AllowedMethods,
		AllowedHeaders: cfg.AllowedHeaders,
		MaxAge:         int(cfg.MaxAge.Seconds()),
	})
}

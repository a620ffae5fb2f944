package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// AllowedOrigins lists exact origins allowed to call the API from a
	// browser. Empty denies every cross-origin request.
	AllowedOrigins []string

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPatch,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsHeaders = []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"X-API-Key",
		"X-Request-ID",
	}
	corsExposed = []string{
		"Retry-After",
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"X-RateLimit-Reset",
		"X-Request-ID",
	}
)

// CORS returns a middleware that answers preflight requests and adds CORS
// headers for allowed origins. Credentials are never allowed; browsers
// authenticate with the Authorization header.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: corsMethods,
		AllowedHeaders: corsHeaders,
		ExposedHeaders: corsExposed,
		MaxAge:         cfg.MaxAge,
	}
	if len(cfg.AllowedOrigins) == 0 {
		// The library treats an empty list as "*".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}
	return cors.Handler(opts)
}

package server

import (
	"log/slog"
	"net/http"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// RateLimitRPS and RateLimitBurst bound job creation per client.
	// A non-positive RateLimitRPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
		RateLimitRPS:   2,
		RateLimitBurst: 5,
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	limit := func(next http.HandlerFunc) http.Handler { return next }
	if cfg.RateLimitRPS > 0 {
		limiter := RateLimitMiddleware(cfg.RateLimitRPS, max(cfg.RateLimitBurst, 1))
		limit = func(next http.HandlerFunc) http.Handler { return limiter(next) }
	}

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("POST /jobs/convert", limit(h.CreateConvertJob))
	mux.Handle("POST /jobs/fetch", limit(h.CreateFetchJob))
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /jobs/{id}/video", h.GetJobVideo)
	mux.HandleFunc("DELETE /jobs/{id}/video", h.DeleteJobVideo)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

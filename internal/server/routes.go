package server

import (
	"log/slog"
	"net/http"

	"github.com/NicolasFive/VideoTingYi/internal/ratelimit"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Limiter bounds job creation per client. Nil disables limiting.
	Limiter *ratelimit.Limiter
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	var create http.Handler = http.HandlerFunc(h.CreateJob)
	if cfg.Limiter != nil && cfg.Limiter.Enabled() {
		create = cfg.Limiter.Middleware(RateLimited)(create)
	}

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("POST /jobs", create)
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.HandleFunc("GET /jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /jobs/{id}/subtitle", h.GetSubtitle)
	mux.HandleFunc("DELETE /jobs/{id}", h.DeleteJob)

	chain := ChainMiddleware(
		RequestIDMiddleware(),
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	return chain(mux)
}

// Package router assembles the HTTP surface: session-gated lead routes,
// the public auth and health endpoints, and the operational extras.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/propstack/buyer-intake/internal/auth"
	"github.com/propstack/buyer-intake/internal/buyers"
	httpmiddleware "github.com/propstack/buyer-intake/internal/http/middleware"
	"github.com/propstack/buyer-intake/internal/ratelimit"
	"github.com/propstack/buyer-intake/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger        *logging.Logger
	BuyersHandler *buyers.Handler
	AuthHandler   *auth.Handler
	Sessions      *auth.Sessions

	// RateLimiter guards the mutating lead endpoints. Optional.
	RateLimiter *ratelimit.Limiter

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	limit := func(next http.Handler) http.Handler { return next }
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Middleware
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		public.Post("/auth/login", cfg.AuthHandler.Login)
		public.Post("/auth/logout", cfg.AuthHandler.Logout)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Everything under /buyers requires a session. Only the mutating
	// endpoints consume rate-limit budget.
	r.Route("/buyers", func(pr chi.Router) {
		pr.Use(auth.Middleware(cfg.Sessions, cfg.Logger))

		pr.Get("/", cfg.BuyersHandler.List)
		pr.With(limit).Post("/", cfg.BuyersHandler.Create)
		pr.Get("/export", cfg.BuyersHandler.Export)
		pr.With(limit).Post("/import", cfg.BuyersHandler.Import)
		pr.Get("/{id}", cfg.BuyersHandler.Get)
		pr.With(limit).Put("/{id}", cfg.BuyersHandler.Update)
		pr.Get("/{id}/history", cfg.BuyersHandler.History)
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

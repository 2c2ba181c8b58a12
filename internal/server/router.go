package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentstation/harvester/internal/server/handlers"
	"github.com/agentstation/harvester/internal/server/middleware"
	"github.com/agentstation/harvester/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	h := handlers.New(s.client, s.cache, s.logger, s.startTime)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(s.logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(s.logger))
	if s.config.RateLimit > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(s.ctx, s.config.RateLimit, s.logger)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Not found", r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.MethodNotAllowed(w, r.Method)
	})

	r.Get("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	r.Group(func(r chi.Router) {
		if s.config.CORSEnabled {
			cors := middleware.DefaultCORSConfig()
			if len(s.config.CORSOrigins) > 0 {
				cors.AllowedOrigins = s.config.CORSOrigins
			}
			r.Use(middleware.CORS(cors))
		}
		r.Use(chimw.GetHead)
		r.Get("/data.json", h.HandleCatalog)
	})

	if s.config.MetricsEnabled && s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	if s.config.APIKey != "" {
		r.Group(func(r chi.Router) {
			auth := middleware.DefaultAuthConfig()
			auth.APIKey = s.config.APIKey
			auth.HeaderName = s.config.AuthHeader
			r.Use(middleware.Auth(auth, s.logger))
			r.Post("/harvest", h.HandleHarvest)
		})
	}

	return r
}

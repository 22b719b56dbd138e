package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iconidentify/inthistweet/internal/api/handler"
	mw "github.com/iconidentify/inthistweet/internal/api/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter. Convert may be nil
// when conversion is disabled.
type Handlers struct {
	Media    *handler.MediaHandler
	Manifest *handler.ManifestHandler
	Convert  *handler.ConvertHandler
	Health   *handler.HealthHandler
	UI       *handler.UIHandler
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(h Handlers, apiKey string, requestTimeout time.Duration, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	r.Use(mw.Metrics)
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}
	r.Use(mw.CORS)

	// Unauthenticated
	if h.UI != nil {
		r.Get("/", h.UI.Index)
	}
	r.Get("/health", h.Health.Live)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/twitter", h.Media.Resolve)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		r.Get("/stats", h.Health.Stats)
		r.Get("/media", h.Media.Resolve)

		r.Post("/manifests/mirror", h.Manifest.Mirror)
		r.Get("/manifests/inspect", h.Manifest.Inspect)

		if h.Convert != nil {
			r.Post("/convert", h.Convert.Submit)
			r.Get("/convert", h.Convert.List)
			r.Get("/convert/{jobID}", h.Convert.Get)
			r.Get("/convert/{jobID}/output", h.Convert.Output)
		}
	})

	return r
}

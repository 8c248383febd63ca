package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fireant/internal/middleware"
)

// RouterOptions configures the optional layers of the router.
type RouterOptions struct {
	// Auth guards /v1 when set.
	Auth *middleware.Authenticator
	// RateLimit throttles /v1 per client when set.
	RateLimit          *middleware.RateLimiter
	CORSAllowedOrigins []string
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
}

// NewRouter mounts the handler under /v1 with request ids, panic recovery
// and CORS.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit.Middleware)
		}
		if opts.Auth != nil {
			r.Use(opts.Auth.Middleware())
		}
		r.Get("/datasets", h.listDatasets)
		r.Route("/datasets/{name}", func(r chi.Router) {
			r.Get("/fields", h.listFields)
			r.Post("/sql", h.sql)
			r.Post("/fetch", h.fetch)
			r.Get("/fields/{alias}/choices", h.choices)
			r.Get("/fields/{alias}/latest", h.latest)
		})
	})
	return r
}

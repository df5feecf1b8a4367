package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"datagate/internal/middleware"
)

// RouterOptions configures the middleware stack around the handlers.
type RouterOptions struct {
	Validator   middleware.TokenValidator
	RateLimit   middleware.RateLimitConfig
	CORSOrigins []string
}

// NewRouter builds the full HTTP surface. Health is public; everything under
// /v1 runs through request ids, authentication and rate limiting, and the
// admin subtree additionally requires an authenticated subject.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Authenticate(opts.Validator))
		if opts.RateLimit.RequestsPerSecond > 0 {
			r.Use(middleware.RateLimiter(opts.RateLimit))
		}

		r.Post("/query", h.ExecuteQuery)
		r.Get("/catalogue", h.ListDatasets)
		r.Get("/catalogue/{datasetID}", h.GetDataset)
		r.Post("/datasets/{datasetID}/query", h.QueryDataset)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuthenticated)
			r.Post("/catalogue", h.Reconcile)
			r.Get("/audit", h.RecentAudit)
		})
	})

	return r
}

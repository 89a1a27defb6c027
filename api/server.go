/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestLogger: request id + request-scoped zap logger, access log
  2. Recoverer:     Panic recovery (500 instead of crash)
  3. CORS:          Cross-origin requests for the review UI

ROUTE GROUPS:
  /api/evaluate                  Single payslip, nothing persisted
  /api/batches/{batchID}/*       Batch evaluation, reconciliation, issues
  /api/clients/{clientID}/*      Client rule-config overrides
  /api/tax-years/*               Registered tax-year tables
  /api/rules                     Rule and reconciliation check catalogue
  /metrics                       Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. The API is meant to sit behind the
  ingestion service's gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. metrics may be
// nil, in which case /metrics is not mounted.
func NewRouter(h *Handler, metrics http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/evaluate", h.EvaluatePayslip)

		// Batch routes
		r.Route("/batches/{batchID}", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateBatch)
			r.Post("/reconcile", h.ReconcileBatch)
			r.Get("/issues", h.ListIssues)
			r.Post("/issues/{issueID}/resolve", h.ResolveIssue)
			r.Get("/runs", h.ListRuns)
		})

		// Client rule-config routes
		r.Route("/clients/{clientID}/rule-config", func(r chi.Router) {
			r.Get("/", h.GetRuleConfig)
			r.Put("/", h.PutRuleConfig)
			r.Delete("/", h.DeleteRuleConfig)
		})

		// Tax-year routes
		r.Route("/tax-years", func(r chi.Router) {
			r.Get("/", h.ListTaxYears)
			r.Get("/{country}/{year}", h.GetTaxYear)
		})

		r.Get("/rules", h.ListRules)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

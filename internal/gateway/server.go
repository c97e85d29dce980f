package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", g.handleHealth())

	// Everything else sits behind bearer auth (unless disabled).
	r.Group(func(r chi.Router) {
		if g.config.authEnabled() {
			r.Use(authMiddleware(g.config.Token))
		}

		r.Get("/ws", g.handleStream())
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Get("/runs", g.handleListRuns())
			r.Post("/runs/delete", g.handleDeleteRuns())
			r.Post("/runs/clear", g.handleClearRuns())
			r.Get("/runs/{id}", g.handleGetRun())
			r.Delete("/runs/{id}", g.handleDeleteRun())

			r.Post("/run", g.handleAdHocRun())
			r.Post("/sync", g.handleSync())

			r.Get("/jobs", g.handleListJobs())
			r.Post("/jobs", g.handleCreateJob())
			r.Get("/jobs/{name}", g.handleGetJob())
			r.Put("/jobs/{name}", g.handleUpdateJob())
			r.Delete("/jobs/{name}", g.handleDeleteJob())
			r.Post("/jobs/{name}/run", g.handleTriggerJob())
			r.Post("/jobs/{name}/kill", g.handleKillJob())
			r.Post("/jobs/{name}/toggle", g.handleToggleJob())
		})
	})

	return r
}

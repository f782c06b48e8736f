// Package api exposes cases and stations over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/internal/infra"
	"github.com/ruslano69/firvault/pkg/datastore"
)

// NewRouter wires all dependencies and returns the chi router.
func NewRouter(inf *infra.Infra, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(zerologMiddleware(logger))
	r.Use(middleware.Recoverer)
	if inf.Audit != nil {
		r.Use(auditMiddleware(inf.Audit, logger))
	}
	r.Use(middleware.Timeout(30 * time.Second))

	h := &handler{cases: inf.Cases, reports: inf.Reports, log: logger}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(inf.DB))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/cases", func(r chi.Router) {
			r.Post("/", h.createCase)
			r.Get("/", h.findCases)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getCase)
				r.Get("/persons", h.listPersons)
				r.Post("/persons", h.addPerson)
			})
		})
		r.Route("/stations", func(r chi.Router) {
			r.Get("/", h.listStations)
			r.Post("/", h.createStation)
		})
		r.Post("/reports/query", h.runReport)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz pings both pools; 503 when neither can serve.
// Driver errors are logged by the data layer, the body carries only status.
func handleReadyz(db *datastore.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := db.Health(r.Context())
		status := http.StatusOK
		if !report.Healthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	}
}

package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fahrzeugdaten/internal/platform/health"
	"fahrzeugdaten/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// NewRouter wires all endpoints with the middleware stack. adminToken guards
// the refresh endpoint; empty disables the guard.
func NewRouter(h *Handler, healthHandler *health.Handler, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(requestTimeout))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.handleIndex)
	h.Register(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))
		h.RegisterRefresh(r)
	})

	return r
}

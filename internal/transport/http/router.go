package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leadgate/pkg/platform/httputil"
)

// HealthCheck reports the health of one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter assembles the HTTP surface.
func NewRouter(h *Handler, checks []HealthCheck, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestContext)

	r.Get("/healthz", healthHandler(checks, logger))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/bootstrap", h.Bootstrap)
	r.Post("/submit", h.Submit)
	r.Post("/process", h.Process)

	return r
}

func healthHandler(checks []HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{}
		healthy := true
		for _, c := range checks {
			if err := c.Check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed",
					"dependency", c.Name,
					"error", err,
				)
				status[c.Name] = "unhealthy"
				healthy = false
				continue
			}
			status[c.Name] = "ok"
		}

		code := http.StatusOK
		if !healthy {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, status)
	}
}

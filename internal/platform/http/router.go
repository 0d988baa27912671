package server

import (
	"context"
	"net/http"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/observability"
	"github.com/GolangDeveloperAlmir/sales-service/pkg/respond"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ReadyFunc reports whether a dependency can serve traffic.
type ReadyFunc func(ctx context.Context) error

// NewOpsRouter serves liveness, readiness and metrics. Every check must pass
// for /readyz to answer 200.
func NewOpsRouter(logger *log.Logger, checks map[string]ReadyFunc) http.Handler {
	logger = log.OrNop(logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = respond.Error(w, http.StatusNotFound, "not found")
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			logger.Warn("not ready", log.Any("checks", failed))
			_ = respond.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		_ = respond.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", observability.Handler())

	return otelhttp.NewHandler(r, "ops")
}

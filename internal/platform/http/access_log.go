package server

import (
	"net/http"
	"time"

	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// probePaths are hit by orchestrators every few seconds; they are logged
// only when they fail.
var probePaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

func accessLog(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if probePaths[r.URL.Path] && rec.status < http.StatusInternalServerError {
				return
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			fields := []log.Field{
				log.Str("method", r.Method),
				log.Str("route", route),
				log.Int("status", rec.status),
				log.Dur("took", time.Since(start)),
				log.Str("req_id", middleware.GetReqID(r.Context())),
			}
			if rec.status >= http.StatusInternalServerError {
				logger.Warn("ops request failed", fields...)
				return
			}
			logger.Debug("ops request", fields...)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

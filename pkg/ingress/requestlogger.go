package ingress

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jowpereira/bradax/pkg/auth"
)

// statusRecorder captures the status code a handler wrote, since
// http.ResponseWriter does not expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger emits one structured line per request via logger: never
// payload bodies, only request_id, route, method, status, duration, and
// project_id when an authenticated Principal is already in context.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			fields := []any{
				"request_id", GetRequestID(r.Context()),
				"method", r.Method,
				"route", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if principal, err := auth.GetPrincipal(r.Context()); err == nil {
				fields = append(fields, "project_id", principal.ProjectID)
			}
			logger.Info("request", fields...)
		})
	}
}

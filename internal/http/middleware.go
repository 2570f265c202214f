package http

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/medconnect/backend/internal/logging"
)

// RequestMetrics records one served request.
type RequestMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// AccessLog logs every request and records its latency by route template.
// httpsnoop keeps the Flusher of the wrapped writer, which the SSE stream needs.
func AccessLog(metrics RequestMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := routeTemplate(r)
			ms := float64(m.Duration.Microseconds()) / 1000
			if metrics != nil {
				metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, ms)
			}

			logger := logging.FromContext(r.Context())
			var ev *zerolog.Event
			switch {
			case m.Code >= 500:
				ev = logger.Error()
			case m.Code >= 400:
				ev = logger.Warn()
			default:
				ev = logger.Info()
			}
			ev.Str("method", r.Method).
				Str("route", route).
				Int("status", m.Code).
				Int64("bytes", m.Written).
				Float64("duration_ms", ms).
				Msg("request served")
		})
	}
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

package http

import (
	"context"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// RequestMetrics records per-request HTTP metrics.
type RequestMetrics interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
}

// RequestLogger logs every matched request and records its metrics under the
// route template rather than the raw path.
func RequestLogger(logger logrus.FieldLogger, metrics RequestMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			ms := float64(m.Duration.Microseconds()) / 1000

			if metrics != nil {
				metrics.RecordHTTPRequest(r.Context(), r.Method, route, m.Code, ms)
			}

			entry := logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"route":       route,
				"status":      m.Code,
				"duration_ms": ms,
				"bytes":       m.Written,
			})
			switch {
			case m.Code >= 500:
				entry.Error("request failed")
			case m.Code >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request completed")
			}
		})
	}
}

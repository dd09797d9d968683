package restapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"subwaychallenge.org/pathfinder/internal/logging"
	"subwaychallenge.org/pathfinder/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NewRequestLoggingMiddleware logs every request and, when m is non-nil,
// counts it by the matched route pattern.
func NewRequestLoggingMiddleware(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := RequestIDFromContext(r.Context())

			r = r.WithContext(logging.WithLogger(r.Context(), logger.With(slog.String("request_id", reqID))))
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)

			logging.LogHTTPRequest(logger,
				r.Method,
				r.URL.Path,
				wrapped.statusCode,
				float64(duration.Nanoseconds())/1e6,
				slog.String("user_agent", r.Header.Get("User-Agent")),
				slog.String("request_id", reqID),
				slog.String("component", "http_server"))

			if m != nil {
				route := r.Pattern
				if route == "" {
					route = "unmatched"
				}
				m.HTTPRequests.WithLabelValues(route, strconv.Itoa(wrapped.statusCode)).Inc()
				m.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
			}
		})
	}
}

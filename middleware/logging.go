package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"friday/logger"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// LoggingMiddleware writes one structured line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrap(w)

		entry := logger.WithRequestID(logger.Logger, GetRequestID(r.Context()))
		entry.Debugf("request started: %s %s", r.Method, r.URL.Path)

		next.ServeHTTP(wrapped, r)

		entry.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_ip":   r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).Info("request completed")
	})
}

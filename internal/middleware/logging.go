package middleware

import (
	"log"
	"net/http"
	"time"
)

// AccessLog logs HTTP requests. Successful requests to one of the quiet paths
// are not logged; failures always are.
func AccessLog(quiet ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			if skip[r.URL.Path] && wrapped.statusCode < http.StatusBadRequest {
				return
			}

			log.Printf(
				"[HTTP] %s %s %s %d %s %s",
				r.Method,
				r.URL.Path,
				r.RemoteAddr,
				wrapped.statusCode,
				time.Since(start),
				requestRef(r.Context()),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

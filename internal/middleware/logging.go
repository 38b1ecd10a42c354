// Package middleware provides the HTTP middleware of the service: request
// ids, request logging, metrics, compression and subnet filtering.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type (
	// responseData holds the status and size of an HTTP response.
	responseData struct {
		status int
		size   int
	}

	// loggingResponseWriter captures the status code and response size.
	loggingResponseWriter struct {
		http.ResponseWriter
		responseData *responseData
	}
)

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	return &loggingResponseWriter{
		ResponseWriter: w,
		responseData:   &responseData{},
	}
}

// Write writes the response body and tracks its size.
func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	if r.responseData.status == 0 {
		r.responseData.status = http.StatusOK
	}
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

// WriteHeader sets the status code and captures it.
func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	if r.responseData.status == 0 {
		r.responseData.status = statusCode
	}
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *loggingResponseWriter) Status() int {
	if r.responseData.status == 0 {
		return http.StatusOK
	}
	return r.responseData.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// WithRequestLogging logs the method, URL, status, size, duration and
// request id of each request.
func WithRequestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			lw := newLoggingResponseWriter(w)
			next.ServeHTTP(lw, r)

			log.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("url", r.URL.String()),
				zap.Duration("duration", time.Since(start)),
				zap.Int("status", lw.Status()),
				zap.Int("size", lw.responseData.size),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

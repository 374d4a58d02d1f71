package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/layr-ng/layr-api/pkg/contextkeys"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/observability"
)

// RequestID assigns every request a UUID, echoed in the X-Request-ID header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := contextkeys.WithValue(r.Context(), contextkeys.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Pagination parses page and page_size query parameters into the request
// context.
func Pagination(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := httputil.ParsePagination(r)
		ctx := contextkeys.WithValue(r.Context(), contextkeys.PaginationKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PaginationFromContext returns the parsed pagination, or defaults when the
// middleware did not run.
func PaginationFromContext(r *http.Request) httputil.Pagination {
	if p, ok := contextkeys.Value(r.Context(), contextkeys.PaginationKey).(*httputil.Pagination); ok {
		return *p
	}
	return httputil.Pagination{Page: 1, PageSize: 20}
}

// RequestLogger logs each request with its duration and status.
func RequestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			entry := logger.
				WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", recorder.status).
				WithField("duration_ms", time.Since(start).Milliseconds())
			if id, ok := contextkeys.Value(r.Context(), contextkeys.RequestIDKey).(string); ok {
				entry = entry.WithField("request_id", id)
			}
			entry.Info("request completed")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

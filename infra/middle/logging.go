package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mstgnz/unipay/infra/logger"
)

type ctxKey struct{}

// RequestIDHeader carries the request ID in and out of the API
const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the handler
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// GetRequestID returns the request ID stored by RequestLoggingMiddleware
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestLoggingMiddleware assigns each request an ID and logs its outcome
func RequestLoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, requestID)))

			logCtx := logger.LogContext{
				RequestID: requestID,
				Fields: map[string]any{
					"method":      r.Method,
					"path":        r.URL.Path,
					"status":      rw.statusCode,
					"duration_ms": time.Since(start).Milliseconds(),
					"client_ip":   GetClientIP(r),
				},
			}
			switch {
			case rw.statusCode >= 500:
				logger.Error("Request failed", nil, logCtx)
			case rw.statusCode >= 400:
				logger.Warn("Request rejected", logCtx)
			default:
				logger.Debug("Request handled", logCtx)
			}
		})
	}
}

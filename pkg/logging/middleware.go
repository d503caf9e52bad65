package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// HTTPMiddleware logs every request served by the auxiliary HTTP listener
// (metrics and health). The request ID is taken from X-Request-ID or
// generated, echoed back and stored in the request context.
func HTTPMiddleware(logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(ContextWithRequestID(r.Context(), requestID))

			reqLogger := logger.WithFields(
				String(requestIDField, requestID),
				String("method", r.Method),
				String("path", r.URL.Path),
			)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r)

			reqLogger.Debug("HTTP request completed",
				Int("status", rw.statusCode),
				Int("bytes", rw.bytesWritten),
				Duration("duration", time.Since(start)),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.bytesWritten += n
	return n, err
}

// HandlerFunc is the shape of an operation wrapped by ContextMiddleware.
type HandlerFunc func(ctx context.Context, params interface{}) (interface{}, error)

// ContextMiddleware attaches a request ID and operation name to the logger
// for the duration of one operation, such as a tool call.
type ContextMiddleware struct {
	logger Logger
}

// NewContextMiddleware creates a new context middleware
func NewContextMiddleware(logger Logger) *ContextMiddleware {
	return &ContextMiddleware{logger: logger}
}

// WrapHandler wraps a handler function with context logging
func (m *ContextMiddleware) WrapHandler(operation string, handler HandlerFunc) HandlerFunc {
	return func(ctx context.Context, params interface{}) (interface{}, error) {
		requestID := RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
			ctx = ContextWithRequestID(ctx, requestID)
		}

		logger := m.logger.WithFields(
			String(requestIDField, requestID),
			String("operation", operation),
		)
		logger.Debug("Operation started")

		start := time.Now()
		result, err := handler(ctx, params)
		duration := time.Since(start)

		if err != nil {
			logger.WithError(err).Warn("Operation failed", Duration("duration", duration))
		} else {
			logger.Debug("Operation completed", Duration("duration", duration))
		}
		return result, err
	}
}

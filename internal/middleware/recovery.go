package middleware

import (
	"fmt"
	"net/http"

	"github.com/SARVESHVARADKAR123/dmsync/internal/observability"
	"github.com/SARVESHVARADKAR123/dmsync/internal/transport"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Recovery turns a handler panic into a 500 carrying the request id and
// marks the active span as failed. http.ErrAbortHandler is re-raised.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				ctx := r.Context()
				reqID := RequestIDFromContext(ctx)

				span := trace.SpanFromContext(ctx)
				span.RecordError(fmt.Errorf("panic: %v", rec))
				span.SetStatus(codes.Error, "panic")

				observability.GetLogger(ctx).Error("panic_recovered",
					zap.Any("error", rec),
					zap.String("request_id", reqID),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				transport.WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error":     "internal_error",
					"message":   "internal server error",
					"requestId": reqID,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}

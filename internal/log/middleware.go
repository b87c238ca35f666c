package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey string

const loggerKey contextKey = "logger"

// Middleware stores a request-scoped logger in the context. The requestID
// extractor runs after any tracing middleware, so the ID it finds ends up
// on every line the handlers log.
func Middleware(logger *Logger, requestID func(context.Context) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped := logger
			if requestID != nil {
				if id := requestID(r.Context()); id != "" {
					scoped = logger.With(FieldRequestID, id)
				}
			}
			ctx := context.WithValue(r.Context(), loggerKey, scoped)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext extracts the request-scoped logger, falling back to the
// process default outside of a request.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

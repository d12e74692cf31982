package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/jio-scheduler/internal/logging"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID      = "X-Jio-User-ID"
	HeaderDisplayName = "X-Jio-Display-Name"
	HeaderEmail       = "X-Jio-Email"
)

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext extracts the request logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	return logging.Component(ctx, fallback, "handler", handlerName, operation, attrs...)
}

// pathID returns the trimmed path wildcard name.
func pathID(r *http.Request, name string) (string, bool) {
	id := strings.TrimSpace(r.PathValue(name))
	return id, id != ""
}

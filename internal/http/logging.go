package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger tags entries with the handler, the request id and the acting
// account. The request logger installed by RequestLogger wins over fallback.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	pairs := make([]any, 0, 8+len(attrs))
	pairs = append(pairs, "handler", handlerName, "operation", operation)

	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
		if id := RequestIDFromContext(ctx); id != "" {
			pairs = append(pairs, "request_id", id)
		}
	}
	if principal, ok := PrincipalFromContext(ctx); ok {
		pairs = append(pairs, "principal", principal.Email, "role", string(principal.Role))
	} else {
		pairs = append(pairs, "principal", "anonymous")
	}
	return logger.With(append(pairs, attrs...)...)
}

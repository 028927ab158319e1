package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cmc-edu/room-booking/internal/logging"
	"github.com/cmc-edu/room-booking/internal/persistence"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the request-scoped logger so entries carry the
// request id, then the service's own logger.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}

// principalAttrs identifies the acting account.
func principalAttrs(p Principal) []any {
	if p.Email == "" {
		return []any{"principal", "anonymous"}
	}
	return []any{"principal_email", p.Email, "principal_role", string(p.Role)}
}

// bookingAttrs describes a stored booking by slot key and status.
func bookingAttrs(b persistence.Booking) []any {
	return []any{
		"room_code", b.RoomCode,
		"date", b.Date,
		"slot", b.Slot,
		"status", string(b.Status),
	}
}

var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrConflict, "conflict"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "timeout"},
}

// ErrorKind maps booking workflow errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.kind
		}
	}
	return "unexpected"
}

package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/roomsched/internal/calendar"
	"github.com/example/roomsched/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel, conflict and validation errors to a stable label
// used for logging, metrics and CLI exit codes.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, calendar.ErrEventNotFound):
		return "not_found"
	case errors.Is(err, calendar.ErrRoomNotFound):
		return "not_found"
	}

	var cErr *calendar.ConflictError
	if errors.As(err, &cErr) {
		return "conflict"
	}

	var vErr *calendar.ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}

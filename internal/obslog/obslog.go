// Package obslog holds two sets of logging helpers side by side:
// request-scoped ones over Nakama's runtime.Logger (WithUser, WithRoom,
// Error) and a process-scoped zap logger (Background). Each call site uses
// the set that matches the logger it has.
package obslog

import (
	"context"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

var (
	backgroundOnce sync.Once
	background     *zap.SugaredLogger
)

// Background returns the process-scoped structured logger used by code with
// no Nakama request context: the matchmaker sweep, the connection-registry
// janitor, and InitModule itself before any request has arrived.
func Background() *zap.SugaredLogger {
	backgroundOnce.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		background = l.Sugar()
	})
	return background
}

// WithUser returns a logger carrying the acting user id as a field, falling
// back to "" when absent from the context.
func WithUser(ctx context.Context, logger runtime.Logger) runtime.Logger {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	return logger.WithField("user", userID)
}

// WithRoom returns a logger carrying the room id as a field.
func WithRoom(logger runtime.Logger, roomID string) runtime.Logger {
	return logger.WithField("room", roomID)
}

// Error logs an error with a short message, the user id (if present in ctx),
// and the error text. Mirrors the teacher's LogError helper.
func Error(ctx context.Context, logger runtime.Logger, message string, err error) {
	l := WithUser(ctx, logger)
	if err != nil {
		l = l.WithField("error", err.Error())
	}
	l.Error(message)
}

// Warn logs a warning with the user id (if present) attached.
func Warn(ctx context.Context, logger runtime.Logger, message string) {
	WithUser(ctx, logger).Warn(message)
}

// Info logs an info line with the user id (if present) attached.
func Info(ctx context.Context, logger runtime.Logger, message string) {
	WithUser(ctx, logger).Info(message)
}

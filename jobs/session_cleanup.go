package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// SessionPruner is the slice of the auth service the cleanup task needs.
type SessionPruner interface {
	PruneSessions(ctx context.Context, now time.Time) (int64, error)
}

// NewSessionCleanupHandler returns the handler for TaskTypeSessionCleanup.
func NewSessionCleanupHandler(pruner SessionPruner, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SessionCleanupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		before := payload.Before
		if before.IsZero() {
			before = time.Now()
		}
		pruned, err := pruner.PruneSessions(ctx, before)
		if err != nil {
			if logger != nil {
				logger.Error("session cleanup", slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("pruned expired sessions", slog.Int64("count", pruned), slog.String("job", TaskTypeSessionCleanup))
		}
		return nil
	}
}

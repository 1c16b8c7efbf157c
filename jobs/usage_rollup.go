package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RollupTenantUsage aggregates yesterday's per-tenant counters into
// tenant_usage_daily. Re-running the same day overwrites the previous row.
func RollupTenantUsage(ctx context.Context, pool *pgxpool.Pool, day time.Time, logger *slog.Logger) error {
	if pool == nil {
		return nil
	}
	day = day.UTC().Truncate(24 * time.Hour)
	_, err := pool.Exec(ctx, `
		INSERT INTO tenant_usage_daily (tenant_id, day, users, locations, packages)
		SELECT t.id, $1::date,
		       (SELECT count(*) FROM user_tenants ut WHERE ut.tenant_id = t.id),
		       (SELECT count(*) FROM locations l WHERE l.tenant_id = t.id),
		       (SELECT count(*) FROM packages p WHERE p.tenant_id = t.id)
		FROM tenants t
		ON CONFLICT (tenant_id, day) DO UPDATE
		SET users = EXCLUDED.users, locations = EXCLUDED.locations, packages = EXCLUDED.packages`,
		day)
	if err != nil {
		if logger != nil {
			logger.Error("tenant usage rollup", slog.Any("error", err))
		}
		return err
	}
	if logger != nil {
		logger.Info("rolled up tenant usage", slog.Time("day", day), slog.String("job", TaskTypeUsageRollup))
	}
	return nil
}

// NewUsageRollupHandler returns the handler for TaskTypeUsageRollup.
func NewUsageRollupHandler(pool *pgxpool.Pool, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload UsageRollupPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		day := payload.Day
		if day.IsZero() {
			day = time.Now().AddDate(0, 0, -1)
		}
		return RollupTenantUsage(ctx, pool, day, logger)
	}
}

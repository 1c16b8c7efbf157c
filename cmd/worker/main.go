package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/cogivn/iwas/internal/app"
	"github.com/cogivn/iwas/internal/auth"
	"github.com/cogivn/iwas/internal/platform/db"
	"github.com/cogivn/iwas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	authService := auth.NewService(auth.NewRepository(pool))

	cleanupTask, err := jobs.NewSessionCleanupTask(jobs.SessionCleanupPayload{})
	if err != nil {
		logger.Error("build session cleanup task", slog.Any("error", err))
		os.Exit(1)
	}
	rollupTask, err := jobs.NewUsageRollupTask(jobs.UsageRollupPayload{})
	if err != nil {
		logger.Error("build usage rollup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSessionCleanup, Handler: jobs.NewSessionCleanupHandler(authService, logger)},
			{Type: jobs.TaskTypeUsageRollup, Handler: jobs.NewUsageRollupHandler(pool, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "45 * * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "20 1 * * *", Task: rollupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

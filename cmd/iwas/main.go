package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cogivn/iwas/internal/access"
	"github.com/cogivn/iwas/internal/app"
	"github.com/cogivn/iwas/internal/auth"
	"github.com/cogivn/iwas/internal/locations"
	"github.com/cogivn/iwas/internal/observability"
	"github.com/cogivn/iwas/internal/packages"
	"github.com/cogivn/iwas/internal/platform/cache"
	"github.com/cogivn/iwas/internal/platform/db"
	"github.com/cogivn/iwas/internal/shared"
	"github.com/cogivn/iwas/internal/tenants"
	"github.com/cogivn/iwas/internal/users"
	"github.com/cogivn/iwas/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "iwas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

	tenantsRepo := tenants.NewRepository(pool)
	tenantsService := tenants.NewService(tenantsRepo, auditLogger)
	tenantStore := tenants.NewAccessStore(tenantsRepo)

	usersRepo := users.NewRepository(pool)

	systemCache := access.NewSystemTenantCache(cfg.SystemTenantID)
	resolver := access.NewResolver(systemCache, tenantStore)
	evaluator := access.NewEvaluator(resolver)
	guard := access.NewGuard(resolver, tenantStore, usersRepo)

	usersService := users.NewService(usersRepo, guard, evaluator, auditLogger)

	accessGuard := access.Middleware{Evaluator: evaluator, Users: usersService, Logger: logger}

	tenantsHandler := tenants.NewHandler(logger, tenantsService, accessGuard)
	usersHandler := users.NewHandler(logger, usersService, accessGuard)

	locationsRepo := locations.NewRepository(pool)
	locationsService := locations.NewService(locationsRepo, evaluator, auditLogger)
	locationsHandler := locations.NewHandler(logger, locationsService, accessGuard)

	packagesRepo := packages.NewRepository(pool)
	packagesService := packages.NewService(packagesRepo, evaluator, auditLogger)
	packagesHandler := packages.NewHandler(logger, packagesService, accessGuard)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		TenantsHandler:   tenantsHandler,
		UsersHandler:     usersHandler,
		LocationsHandler: locationsHandler,
		PackagesHandler:  packagesHandler,
		JobsHandler:      jobsHandler,
		AccessGuard:      accessGuard,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

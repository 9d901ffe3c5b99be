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

	"github.com/pangkas-pos/pangkas/internal/app"
	"github.com/pangkas-pos/pangkas/internal/inventory"
	"github.com/pangkas-pos/pangkas/internal/observability"
	"github.com/pangkas-pos/pangkas/internal/payroll"
	"github.com/pangkas-pos/pangkas/internal/platform/cache"
	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/reporting"
	"github.com/pangkas-pos/pangkas/internal/sales"
	"github.com/pangkas-pos/pangkas/internal/settings"
	"github.com/pangkas-pos/pangkas/internal/shared"
	"github.com/pangkas-pos/pangkas/internal/walkin"
	"github.com/pangkas-pos/pangkas/jobs"
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
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	settingsStore := settings.NewStore(pool)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, settingsStore, auditLogger, logger)
	salesHandler := sales.NewHandler(logger, salesService, metrics)

	walkinRepo := walkin.NewRepository(pool)
	walkinService := walkin.NewService(walkinRepo, settingsStore, logger)
	walkinHandler := walkin.NewHandler(logger, walkinService)

	payrollRepo := payroll.NewRepository(pool)
	payrollService := payroll.NewService(payrollRepo, jobsClient, auditLogger, logger)
	payrollHandler := payroll.NewHandler(logger, payrollService, metrics)

	stockAdjuster := inventory.NewAdjuster(pool)
	reportingCache := reporting.NewCache(redisClient, cfg.DashboardCacheTTL)
	reportingService := reporting.NewService(salesService, walkinService, stockAdjuster, payrollService, reportingCache)
	reportingHandler := reporting.NewHandler(logger, reportingService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Pool:             pool,
		SalesHandler:     salesHandler,
		WalkinHandler:    walkinHandler,
		PayrollHandler:   payrollHandler,
		ReportingHandler: reportingHandler,
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

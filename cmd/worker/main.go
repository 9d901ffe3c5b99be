package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/pangkas-pos/pangkas/internal/app"
	"github.com/pangkas-pos/pangkas/internal/inventory"
	jobmetrics "github.com/pangkas-pos/pangkas/internal/jobs"
	"github.com/pangkas-pos/pangkas/internal/platform/db"
	"github.com/pangkas-pos/pangkas/internal/staff"
	"github.com/pangkas-pos/pangkas/jobs"
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

	var mailer jobs.EmailSender
	if cfg.SMTPHost != "" {
		mailer = jobs.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	} else {
		mailer = jobs.LogMailer{Logger: logger}
	}

	metrics := jobmetrics.NewMetrics(nil)

	barbers := staff.NewRepository(pool)
	slipNotify := jobs.NewSlipNotifyJob(barbers, mailer, metrics, logger)

	stockAdjuster := inventory.NewAdjuster(pool)
	lowStockScan := jobs.NewLowStockScanJob(stockAdjuster, mailer, cfg.AdminEmail, metrics, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSlipCreated, Handler: slipNotify.HandleCreated},
			{Type: jobs.TaskSlipPaid, Handler: slipNotify.HandlePaid},
			{Type: jobs.TaskLowStockScan, Handler: lowStockScan.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 21 * * *", Task: jobs.NewLowStockScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
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

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dealerdesk/dealerdesk/internal/app"
	"github.com/dealerdesk/dealerdesk/internal/docgen/export"
	"github.com/dealerdesk/dealerdesk/internal/docgen/render"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/internal/stamp"
	"github.com/dealerdesk/dealerdesk/jobs"
	"github.com/dealerdesk/dealerdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	salesService := sales.NewService(pool)

	stampProcessor := stamp.NewProcessor(cfg.StampAsset, logger)
	logo := render.NewLogo(cfg.LogoAsset, logger)
	renderer, err := render.NewRenderer(stampProcessor, logo)
	if err != nil {
		logger.Error("parse document templates", slog.Any("error", err))
		os.Exit(1)
	}

	reportClient := report.NewClient(cfg.GotenbergURL)
	metrics := observability.NewMetrics()
	exporter := export.NewExporter(renderer, reportClient, metrics, logger, cfg.ExportScale, cfg.ExportImageTimeout)

	batchJob := export.NewJob(export.JobConfig{
		Sales:      salesService,
		Exporter:   exporter,
		StorageDir: cfg.ExportStorageDir,
		Logger:     logger,
		Metrics:    observability.NewJobMetrics(nil),
	})

	// Empty payload exports the previous day's completed sales.
	nightly, err := jobs.NewBatchExportTask(jobs.BatchExportPayload{})
	if err != nil {
		logger.Error("build nightly task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeBatchExport, Handler: batchJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.BatchExportCron, Task: nightly, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

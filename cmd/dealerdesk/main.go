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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dealerdesk/dealerdesk/internal/app"
	"github.com/dealerdesk/dealerdesk/internal/auth"
	"github.com/dealerdesk/dealerdesk/internal/dispatch"
	"github.com/dealerdesk/dealerdesk/internal/docgen/export"
	"github.com/dealerdesk/dealerdesk/internal/docgen/render"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/platform/objstore"
	"github.com/dealerdesk/dealerdesk/internal/preview"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/internal/stamp"
	"github.com/dealerdesk/dealerdesk/jobs"
	"github.com/dealerdesk/dealerdesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	salesService := sales.NewService(dbpool)
	salesHandler := sales.NewHandler(logger, salesService)

	stampProcessor := stamp.NewProcessor(cfg.StampAsset, logger)
	logo := render.NewLogo(cfg.LogoAsset, logger)
	renderer, err := render.NewRenderer(stampProcessor, logo)
	if err != nil {
		logger.Error("parse document templates", slog.Any("error", err))
		os.Exit(1)
	}

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	exporter := export.NewExporter(renderer, reportClient, metrics, logger, cfg.ExportScale, cfg.ExportImageTimeout)

	s3Client, err := objstore.New(ctx, objstore.Options{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		logger.Error("configure object store", slog.Any("error", err))
		os.Exit(1)
	}
	dispatcher := dispatch.New(s3Client, dispatch.Options{
		Bucket:   cfg.S3Bucket,
		LinkTTL:  cfg.ShareLinkTTL,
		SpoolDir: cfg.SpoolDir,
		Grace:    cfg.SpoolGracePeriod,
	}, logger)

	exportHandler := export.NewHandler(logger, salesService, exporter, dispatcher)

	previewService := preview.NewService(redisClient, salesService, exporter, logger, cfg.PreviewSessionTTL, cfg.PreviewDebounce)
	previewHandler := preview.NewHandler(logger, previewService)

	authService := auth.NewService(redisClient, cfg.AdminPasswordHash, cfg.AdminTokenTTL, logger)
	authHandler := auth.NewHandler(authService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("configure job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthService:    authService,
		AuthHandler:    authHandler,
		SalesHandler:   salesHandler,
		ExportHandler:  exportHandler,
		PreviewHandler: previewHandler,
		ReportHandler:  reportHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
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

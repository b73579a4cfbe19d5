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

	"github.com/odyssey-erp/docplan/internal/app"
	"github.com/odyssey-erp/docplan/internal/document"
	documenthttp "github.com/odyssey-erp/docplan/internal/document/http"
	"github.com/odyssey-erp/docplan/internal/observability"
	"github.com/odyssey-erp/docplan/internal/platform/cache"
	"github.com/odyssey-erp/docplan/internal/platform/db"
	"github.com/odyssey-erp/docplan/jobs"
	"github.com/odyssey-erp/docplan/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
	metrics := observability.NewMetrics()

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
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

	docs, err := app.NewDocuments(cfg, pool, metrics, logger)
	if err != nil {
		logger.Error("init documents", slog.Any("error", err))
		os.Exit(1)
	}
	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := docs.PDFClient.Ping(pingCtx); err != nil {
		logger.Warn("gotenberg unreachable, pdf routes will fail until it is up", slog.Any("error", err))
	}
	cancelPing()

	artifacts := document.NewArtifactStore(redisClient, cfg.DocArtifactTTL)
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts, artifacts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		DocumentHandler: documenthttp.NewHandler(logger, docs.Service, docs.Renderer, jobClient, artifacts, documenthttp.Options{
			PDFPerMinute:  cfg.DocPDFPerMinute,
			RenderTimeout: cfg.GotenbergTimeout * 2,
		}),
		ReportHandler: report.NewHandler(docs.PDFClient, logger),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
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

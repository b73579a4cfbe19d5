package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/docplan/cmd/docctl/cli"
	"github.com/odyssey-erp/docplan/internal/app"
	"github.com/odyssey-erp/docplan/internal/document"
	"github.com/odyssey-erp/docplan/internal/platform/cache"
	"github.com/odyssey-erp/docplan/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping docctl")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(newRuntime).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// newRuntime connects to PostgreSQL, Redis and Gotenberg from the environment.
func newRuntime(ctx context.Context) (*cli.Runtime, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := app.NewLoggerTo(cfg, os.Stderr)

	pool, err := db.New(ctx, cfg.PGDSN, 2)
	if err != nil {
		return nil, nil, err
	}
	docs, err := app.NewDocuments(cfg, pool, nil, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	rt := &cli.Runtime{Planner: docs.Service, Renderer: docs.Renderer}
	closers := []func(){pool.Close}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, enqueue and queue commands disabled", slog.Any("error", err))
	} else {
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr, document.NewArtifactStore(redisClient, cfg.DocArtifactTTL))
		if err != nil {
			_ = redisClient.Close()
			logger.Warn("init jobs cli", slog.Any("error", err))
		} else {
			rt.Queue = jobsCLI
			closers = append(closers, func() { _ = jobsCLI.Close() }, func() { _ = redisClient.Close() })
		}
	}

	done := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return rt, done, nil
}

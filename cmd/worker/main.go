package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/helix-dx/helix-erp/internal/app"
	"github.com/helix-dx/helix-erp/internal/deposits"
	jobmetrics "github.com/helix-dx/helix-erp/internal/jobs"
	"github.com/helix-dx/helix-erp/internal/ledger"
	"github.com/helix-dx/helix-erp/internal/platform/cache"
	"github.com/helix-dx/helix-erp/internal/platform/db"
	"github.com/helix-dx/helix-erp/internal/variance"
	"github.com/helix-dx/helix-erp/jobs"
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

	ledgerService := ledger.NewService(ledger.NewRepository(pool), nil)
	depositRepo := deposits.NewRepository(pool)
	varianceCache := variance.NewCache(redisClient, cfg.VarianceCacheTTL)
	varianceService := variance.NewService(ledgerService, depositRepo, varianceCache)
	warmupJob := variance.NewWarmupJob(varianceService, variance.NewRepository(pool), logger, jobmetrics.NewMetrics(nil))

	warmupTask, err := jobs.NewVarianceWarmupTask(jobs.VarianceWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskVarianceWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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

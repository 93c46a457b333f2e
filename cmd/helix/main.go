package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/helix-dx/helix-erp/internal/app"
	"github.com/helix-dx/helix-erp/internal/approval"
	"github.com/helix-dx/helix-erp/internal/audit"
	audithttp "github.com/helix-dx/helix-erp/internal/audit/http"
	"github.com/helix-dx/helix-erp/internal/deposits"
	"github.com/helix-dx/helix-erp/internal/ledger"
	"github.com/helix-dx/helix-erp/internal/observability"
	"github.com/helix-dx/helix-erp/internal/platform/cache"
	"github.com/helix-dx/helix-erp/internal/platform/db"
	"github.com/helix-dx/helix-erp/internal/shared"
	"github.com/helix-dx/helix-erp/internal/variance"
	variancehttp "github.com/helix-dx/helix-erp/internal/variance/http"
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
		logger.Warn("redis unavailable, variance cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	approvalHistory := shared.NewApprovalRecorder(pool, logger)

	approvalRepo := approval.NewRepository(pool)
	approvalService := approval.NewService(approvalRepo, approvalHistory, auditLogger)
	approvalHandler := approval.NewHandler(logger, approvalService, metrics)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService)

	depositRepo := deposits.NewRepository(pool)
	depositService := deposits.NewService(depositRepo, ledgerService, auditLogger)
	depositHandler := deposits.NewHandler(logger, depositService)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audithttp.NewHandler(logger, auditService)

	varianceCache := variance.NewCache(redisClient, cfg.VarianceCacheTTL)
	varianceService := variance.NewService(ledgerService, depositRepo, varianceCache)
	varianceHandler := variancehttp.NewHandler(logger, varianceService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ApprovalHandler: approvalHandler,
		LedgerHandler:   ledgerHandler,
		DepositHandler:  depositHandler,
		VarianceHandler: varianceHandler,
		AuditHandler:    auditHandler,
		Metrics:         metrics,
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

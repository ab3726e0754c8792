package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/arcadia-retail/arcadia/internal/app"
	"github.com/arcadia-retail/arcadia/internal/assets"
	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/masterdata/settings"
	"github.com/arcadia-retail/arcadia/internal/platform/db"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/procurement"
	"github.com/arcadia-retail/arcadia/internal/shared"
	"github.com/arcadia-retail/arcadia/jobs"
)

func main() {
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

	auditLogger := shared.NewAuditLogger(pool)

	ledgerService := ledger.NewService(ledger.NewRepository(pool), auditLogger)
	settingsService := settings.NewService(settings.NewRepository(pool))
	posService := pos.NewService(pos.NewRepository(pool), ledgerService, settingsService, auditLogger)
	procurementService := procurement.NewService(procurement.NewRepository(pool), auditLogger)
	assetsService := assets.NewService(assets.NewRepository(pool), procurementService, ledgerService, auditLogger)

	var cron []jobs.CronRegistration
	if cfg.DepreciationCron != "" {
		task, err := jobs.NewDepreciationRunTask(jobs.DepreciationRunPayload{})
		if err != nil {
			logger.Error("build depreciation task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.DepreciationCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}
	if cfg.ReconScanCron != "" {
		task, err := jobs.NewReconScanTask()
		if err != nil {
			logger.Error("build recon scan task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ReconScanCron,
			Task:    task,
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeDepreciationRun, Handler: jobs.NewDepreciationRunHandler(assetsService, logger)},
			{Type: jobs.TaskTypeReconScan, Handler: jobs.NewReconScanHandler(posService, settingsService, auditLogger, logger)},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

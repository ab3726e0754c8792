package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/arcadia-retail/arcadia/internal/app"
	"github.com/arcadia-retail/arcadia/internal/assets"
	"github.com/arcadia-retail/arcadia/internal/auth"
	"github.com/arcadia-retail/arcadia/internal/invoicing"
	"github.com/arcadia-retail/arcadia/internal/ledger"
	"github.com/arcadia-retail/arcadia/internal/ledger/dimensions"
	"github.com/arcadia-retail/arcadia/internal/masterdata/branches"
	"github.com/arcadia-retail/arcadia/internal/masterdata/customers"
	"github.com/arcadia-retail/arcadia/internal/masterdata/products"
	"github.com/arcadia-retail/arcadia/internal/masterdata/settings"
	"github.com/arcadia-retail/arcadia/internal/platform/cache"
	"github.com/arcadia-retail/arcadia/internal/platform/db"
	"github.com/arcadia-retail/arcadia/internal/pos"
	"github.com/arcadia-retail/arcadia/internal/procurement"
	"github.com/arcadia-retail/arcadia/internal/sales/quotations"
	"github.com/arcadia-retail/arcadia/internal/shared"
	"github.com/arcadia-retail/arcadia/jobs"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "apply migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if err := app.Migrate(cfg.PGDSN, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	if *migrateOnly {
		return
	}

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

	sessions := shared.NewSessionStore(redisClient, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(pool)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessions)
	authn := auth.Middleware{Sessions: sessions, Authorizer: authService, Logger: logger}

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, auditLogger)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, authn)

	dimensionsRepo := dimensions.NewRepository(pool)
	dimensionsService := dimensions.NewService(dimensionsRepo, auditLogger)
	dimensionsHandler := dimensions.NewHandler(logger, dimensionsService, authn)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo)
	settingsHandler := settings.NewHandler(logger, settingsService, authn)

	posRepo := pos.NewRepository(pool)
	posService := pos.NewService(posRepo, ledgerService, settingsService, auditLogger)
	posHandler := pos.NewHandler(logger, posService, authn)

	customersRepo := customers.NewRepository(pool)
	customersHandler := customers.NewHandler(logger, customersRepo, authn)

	quotationsRepo := quotations.NewRepository(pool)
	quotationsService := quotations.NewService(quotationsRepo, customersRepo, auditLogger)
	quotationsHandler := quotations.NewHandler(logger, quotationsService, authn)

	invoicingRepo := invoicing.NewRepository(pool)
	invoicingService := invoicing.NewService(invoicingRepo, quotationsService, posService, auditLogger)
	invoicingHandler := invoicing.NewHandler(logger, invoicingService, authn)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService, authn)

	assetsRepo := assets.NewRepository(pool)
	assetsService := assets.NewService(assetsRepo, procurementService, ledgerService, auditLogger)
	assetsHandler := assets.NewHandler(logger, assetsService, authn)

	branchesRepo := branches.NewRepository(pool)
	branchesHandler := branches.NewHandler(logger, branchesRepo, authn)

	productsRepo := products.NewRepository(pool)
	productsHandler := products.NewHandler(logger, productsRepo, authn)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, authn, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authn:             authn,
		AuthHandler:       authHandler,
		LedgerHandler:     ledgerHandler,
		DimensionsHandler: dimensionsHandler,
		POSHandler:        posHandler,
		QuotationsHandler: quotationsHandler,
		InvoicingHandler:  invoicingHandler,
		PurchasesHandler:  procurementHandler,
		AssetsHandler:     assetsHandler,
		BranchesHandler:   branchesHandler,
		ProductsHandler:   productsHandler,
		CustomersHandler:  customersHandler,
		SettingsHandler:   settingsHandler,
		JobHandler:        jobHandler,
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

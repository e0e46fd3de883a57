package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/tradewind-erp/tradewind/internal/app"
	"github.com/tradewind-erp/tradewind/internal/auth"
	jobmetrics "github.com/tradewind-erp/tradewind/internal/jobs"
	"github.com/tradewind-erp/tradewind/internal/ledger"
	"github.com/tradewind-erp/tradewind/internal/maintenance"
	"github.com/tradewind-erp/tradewind/internal/masterdata/categories"
	"github.com/tradewind-erp/tradewind/internal/masterdata/customers"
	"github.com/tradewind-erp/tradewind/internal/masterdata/locations"
	"github.com/tradewind-erp/tradewind/internal/masterdata/products"
	"github.com/tradewind-erp/tradewind/internal/masterdata/suppliers"
	"github.com/tradewind-erp/tradewind/internal/observability"
	"github.com/tradewind-erp/tradewind/internal/platform/cache"
	"github.com/tradewind-erp/tradewind/internal/platform/db"
	"github.com/tradewind-erp/tradewind/internal/purchasing"
	"github.com/tradewind-erp/tradewind/internal/sales"
	"github.com/tradewind-erp/tradewind/internal/settings"
	"github.com/tradewind-erp/tradewind/internal/shared"
	"github.com/tradewind-erp/tradewind/internal/stock"
	"github.com/tradewind-erp/tradewind/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.DatabaseURL)
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

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())
	validate := validator.New()

	auditLogger := shared.NewAuditLogger(pool)
	idemStore := shared.NewIdempotencyStore(pool)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerCache := ledger.NewCache(redisClient, 10*time.Minute)
	ledgerService := ledger.NewService(ledgerRepo, ledgerCache)
	ledgerHandler := ledger.NewHandler(ledgerService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, stockRepo, ledgerService, logger)
	stockHandler := stock.NewHandler(stockService, validate)

	productsService := products.NewService(products.NewRepository(pool))
	categoriesService := categories.NewService(categories.NewRepository(pool))
	suppliersService := suppliers.NewService(suppliers.NewRepository(pool))
	customersService := customers.NewService(customers.NewRepository(pool))
	locationsService := locations.NewService(locations.NewRepository(pool))

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(purchasingRepo, auditLogger, idemStore, ledgerService, logger)
	purchasingHandler := purchasing.NewHandler(purchasingService, validate)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, auditLogger, ledgerService, logger)
	salesHandler := sales.NewHandler(salesService, validate)

	settingsService := settings.NewService(settings.NewRepository(pool), logger)
	if err := settingsService.Seed(ctx, settings.Settings{
		CompanyName: cfg.CompanyName,
		Email:       cfg.CompanyEmail,
		Phone:       cfg.CompanyPhone,
		Address:     cfg.CompanyAddress,
		Currency:    cfg.DefaultCurrency,
	}); err != nil {
		logger.Error("seed settings", slog.Any("error", err))
		os.Exit(1)
	}

	maintenanceService := maintenance.NewService(maintenance.NewRepository(pool), jobMetrics, logger)
	if cfg.VerifyOnStartup {
		if report, err := maintenanceService.VerifyCounters(ctx, false); err != nil {
			logger.Warn("startup counter verification", slog.Any("error", err))
		} else if len(report.Drifts) > 0 {
			logger.Warn("startup counter verification found drift", slog.Int("drifts", len(report.Drifts)))
		}
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,
		Pool:   pool,
		Auth:   auth.Middleware{Secret: []byte(cfg.JWTSecret), Logger: logger},

		ProductsHandler:    products.NewHandler(productsService, validate),
		CategoriesHandler:  categories.NewHandler(categoriesService, validate),
		SuppliersHandler:   suppliers.NewHandler(suppliersService, validate),
		CustomersHandler:   customers.NewHandler(customersService, validate),
		LocationsHandler:   locations.NewHandler(locationsService, validate),
		StockHandler:       stockHandler,
		LedgerHandler:      ledgerHandler,
		PurchasingHandler:  purchasingHandler,
		SalesHandler:       salesHandler,
		SettingsHandler:    settings.NewHandler(settingsService, validate),
		MaintenanceHandler: maintenance.NewHandler(maintenanceService),
		JobHandler:         jobHandler,

		Metrics: metrics,
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

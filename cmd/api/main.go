package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marianocruz/pos-inventory-backend/api"
	"github.com/marianocruz/pos-inventory-backend/api/controllers"
	"github.com/marianocruz/pos-inventory-backend/api/routes"
	"github.com/marianocruz/pos-inventory-backend/internal/availability"
	"github.com/marianocruz/pos-inventory-backend/internal/breakdown"
	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/internal/deduction"
	"github.com/marianocruz/pos-inventory-backend/internal/deployment"
	"github.com/marianocruz/pos-inventory-backend/internal/health"
	"github.com/marianocruz/pos-inventory-backend/internal/idempotency"
	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/config"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
	"github.com/marianocruz/pos-inventory-backend/pkg/metrics"
	"github.com/marianocruz/pos-inventory-backend/pkg/migrate"
	"github.com/marianocruz/pos-inventory-backend/pkg/redis"
	"github.com/marianocruz/pos-inventory-backend/pkg/retry"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	moveRepo := movements.NewRepository(conn)
	convRepo := conversions.NewRepository(conn)
	stockRepo := deduction.NewStockRepository(conn)
	compRepo := deduction.NewCompensationRepository(conn)
	idemRepo := idempotency.NewRepository(conn)
	deliveryRepo := breakdown.NewRepository(conn)
	deployRepo := deployment.NewRepository(conn)

	recorder, err := movements.NewRecorder(moveRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create movement recorder", err)
		os.Exit(1)
	}
	convSvc, err := conversions.NewService(convRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create conversion mapping service", err)
		os.Exit(1)
	}
	guard, err := idempotency.NewGuard(redisClient, cfg.Inventory.IdempotencyTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}
	retryPolicy, err := retry.NewPolicy(cfg.Inventory.MaxDeductionAttempts, cfg.Inventory.RetryBaseDelay)
	if err != nil {
		logg.Error(context.Background(), "failed to create retry policy", err)
		os.Exit(1)
	}
	stockPolicy, err := deduction.ParseStockPolicy(cfg.Inventory.StockPolicy)
	if err != nil {
		logg.Error(context.Background(), "invalid stock policy", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	deductionMetrics := metrics.NewDeductionMetrics(registry)

	executor, err := deduction.NewExecutor(deduction.ExecutorDeps{
		Resolver:      convSvc,
		Stocks:        stockRepo,
		Recorder:      recorder,
		IdemRepo:      idemRepo,
		Guard:         guard,
		Compensations: compRepo,
		RetryPolicy:   retryPolicy,
		Metrics:       deductionMetrics,
		Logger:        logg,
		Policy:        stockPolicy,
		Concurrency:   cfg.Inventory.DeductionConcurrency,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deduction executor", err)
		os.Exit(1)
	}

	checker, err := availability.NewService(convSvc, cfg.Inventory.DeductionConcurrency)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability checker", err)
		os.Exit(1)
	}
	processor, err := breakdown.NewProcessor(deliveryRepo, recorder, retryPolicy, logg, cfg.Inventory.ServingOverrides)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery processor", err)
		os.Exit(1)
	}
	deploySvc, err := deployment.NewService(deployRepo, convSvc, deployment.FirstMatchStrategy{}, logg, cfg.Deployment.PriceMarkup, cfg.Deployment.DefaultThreshold)
	if err != nil {
		logg.Error(context.Background(), "failed to create deployment service", err)
		os.Exit(1)
	}
	healthSvc, err := health.NewService(health.Deps{
		Stocks:            stockRepo,
		Idempotency:       idemRepo,
		Compensations:     compRepo,
		Conversions:       convRepo,
		Movements:         moveRepo,
		Deployments:       deployRepo,
		Cache:             redisClient,
		Logger:            logg,
		SuccessRateWindow: cfg.Health.SuccessRateWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health monitor", err)
		os.Exit(1)
	}

	inventoryController, err := controllers.NewInventoryController(executor, moveRepo, checker, processor, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory controller", err)
		os.Exit(1)
	}
	deploymentController, err := controllers.NewDeploymentController(deploySvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deployment controller", err)
		os.Exit(1)
	}
	healthController, err := controllers.NewHealthController(healthSvc, dbClient, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create health controller", err)
		os.Exit(1)
	}

	router := routes.New(routes.Deps{
		Logger:     logg,
		Inventory:  inventoryController,
		Deployment: deploymentController,
		Health:     healthController,
		Registry:   registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	server := api.NewServer(port, router, logg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"port": port,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

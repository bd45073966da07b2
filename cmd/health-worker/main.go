package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/marianocruz/pos-inventory-backend/internal/conversions"
	"github.com/marianocruz/pos-inventory-backend/internal/deduction"
	"github.com/marianocruz/pos-inventory-backend/internal/deployment"
	"github.com/marianocruz/pos-inventory-backend/internal/health"
	"github.com/marianocruz/pos-inventory-backend/internal/idempotency"
	"github.com/marianocruz/pos-inventory-backend/internal/movements"
	"github.com/marianocruz/pos-inventory-backend/pkg/config"
	"github.com/marianocruz/pos-inventory-backend/pkg/db"
	"github.com/marianocruz/pos-inventory-backend/pkg/logger"
	"github.com/marianocruz/pos-inventory-backend/pkg/migrate"
	"github.com/marianocruz/pos-inventory-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "health-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "health-worker",
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
	checker, err := health.NewService(health.Deps{
		Stocks:            deduction.NewStockRepository(conn),
		Idempotency:       idempotency.NewRepository(conn),
		Compensations:     deduction.NewCompensationRepository(conn),
		Conversions:       conversions.NewRepository(conn),
		Movements:         movements.NewRepository(conn),
		Deployments:       deployment.NewRepository(conn),
		Cache:             redisClient,
		Logger:            logg,
		SuccessRateWindow: cfg.Health.SuccessRateWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create health monitor", err)
		os.Exit(1)
	}

	service, err := NewService(logg, storeTableSource{db: conn}, checker, redisClient, cfg.Health.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create health worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Health.Interval.String(),
	})
	logg.Info(ctx, "starting health worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "health worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "health worker shutting down gracefully")
}

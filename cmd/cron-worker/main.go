package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/farmbridge/farmbridge-backend/internal/cart"
	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/internal/contracts"
	"github.com/farmbridge/farmbridge-backend/internal/cron"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/internal/notifications"
	"github.com/farmbridge/farmbridge-backend/internal/orders"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/internal/stock"
	"github.com/farmbridge/farmbridge-backend/pkg/config"
	"github.com/farmbridge/farmbridge-backend/pkg/db"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/metrics"
	"github.com/farmbridge/farmbridge-backend/pkg/migrate"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/redis"
)

const lockKeyFormat = "fb:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := buildRegistry(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildRegistry wires the three scheduled jobs. The contract cycle reuses
// the checkout path, so the full orders service graph comes along.
func buildRegistry(dbClient *db.Client, logg *logger.Logger) (*cron.Registry, error) {
	gdb := dbClient.DB()

	catalogRepo := catalog.NewRepository(gdb)
	cartSvc, err := cart.NewService(cart.NewRepository(gdb), catalogRepo)
	if err != nil {
		return nil, err
	}
	pricingSvc, err := pricing.NewService(pricing.NewRepository(gdb))
	if err != nil {
		return nil, err
	}
	stockRepo := stock.NewRepository(gdb)
	stockSvc, err := stock.NewService(stockRepo)
	if err != nil {
		return nil, err
	}
	earningsSvc, err := earnings.NewService(earnings.NewRepository(gdb), dbClient)
	if err != nil {
		return nil, err
	}

	events := outbox.NewService(outbox.NewRepository(gdb), logg)

	ordersSvc, err := orders.NewService(
		orders.NewRepository(gdb),
		stockSvc,
		pricingSvc,
		earningsSvc,
		cartSvc,
		dbClient,
		events,
		logg,
	)
	if err != nil {
		return nil, err
	}

	contractsSvc, err := contracts.NewService(
		contracts.NewRepository(gdb),
		ordersSvc,
		stockRepo,
		dbClient,
		events,
		logg,
	)
	if err != nil {
		return nil, err
	}

	contractJob, err := cron.NewContractCycleJob(cron.ContractCycleJobParams{
		Logger:    logg,
		Contracts: contractsSvc,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gdb),
	})
	if err != nil {
		return nil, err
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(gdb),
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(contractJob, cleanupJob, retentionJob), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

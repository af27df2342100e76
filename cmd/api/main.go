package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/farmbridge/farmbridge-backend/api/routes"
	"github.com/farmbridge/farmbridge-backend/internal/cart"
	"github.com/farmbridge/farmbridge-backend/internal/catalog"
	"github.com/farmbridge/farmbridge-backend/internal/contracts"
	"github.com/farmbridge/farmbridge-backend/internal/earnings"
	"github.com/farmbridge/farmbridge-backend/internal/notifications"
	"github.com/farmbridge/farmbridge-backend/internal/orders"
	"github.com/farmbridge/farmbridge-backend/internal/pricing"
	"github.com/farmbridge/farmbridge-backend/internal/stock"
	"github.com/farmbridge/farmbridge-backend/internal/wallet"
	"github.com/farmbridge/farmbridge-backend/pkg/config"
	"github.com/farmbridge/farmbridge-backend/pkg/db"
	"github.com/farmbridge/farmbridge-backend/pkg/logger"
	"github.com/farmbridge/farmbridge-backend/pkg/migrate"
	"github.com/farmbridge/farmbridge-backend/pkg/outbox"
	"github.com/farmbridge/farmbridge-backend/pkg/redis"
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

	services, err := buildServices(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, services),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// buildServices assembles the domain service graph. Checkout depends on
// stock, pricing, earnings and cart; contracts depend on the assembled
// orders service so recurring cycles reuse the same reservation path.
func buildServices(dbClient *db.Client, logg *logger.Logger) (routes.Services, error) {
	gdb := dbClient.DB()

	catalogRepo := catalog.NewRepository(gdb)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	cartSvc, err := cart.NewService(cart.NewRepository(gdb), catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	pricingSvc, err := pricing.NewService(pricing.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	stockRepo := stock.NewRepository(gdb)
	stockSvc, err := stock.NewService(stockRepo)
	if err != nil {
		return routes.Services{}, err
	}

	earningsSvc, err := earnings.NewService(earnings.NewRepository(gdb), dbClient)
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(gdb), dbClient, events, logg)
	if err != nil {
		return routes.Services{}, err
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
		return routes.Services{}, err
	}

	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gdb))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:       catalogSvc,
		Cart:          cartSvc,
		Orders:        ordersSvc,
		Wallet:        walletSvc,
		Earnings:      earningsSvc,
		Pricing:       pricingSvc,
		Contracts:     contractsSvc,
		Notifications: notificationsSvc,
	}, nil
}

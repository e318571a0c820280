package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/webloom/storefront-backend/api/routes"
	checkoutflow "github.com/webloom/storefront-backend/internal/checkout"
	"github.com/webloom/storefront-backend/internal/orders"
	"github.com/webloom/storefront-backend/pkg/config"
	"github.com/webloom/storefront-backend/pkg/db"
	"github.com/webloom/storefront-backend/pkg/logger"
	"github.com/webloom/storefront-backend/pkg/metrics"
	"github.com/webloom/storefront-backend/pkg/migrate"
	"github.com/webloom/storefront-backend/pkg/razorpay"
	"github.com/webloom/storefront-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var idemStore redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		idemStore = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency replay disabled")
	}

	gatewayClient, err := razorpay.NewClient(cfg.Razorpay)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap payment gateway client", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, gatewayClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	flow, err := checkoutflow.NewFlow(ordersSvc, cfg.Razorpay.KeyID, cfg.Checkout.GatewayAwaitTimeout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout flow", err)
		os.Exit(1)
	}

	sweeper, err := checkoutflow.NewSweeper(flow, 0, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout sweeper", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, idemStore, registry, httpMetrics, ordersSvc, flow),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "checkout sweeper stopped unexpectedly", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx, server, dbClient, redisClient); err != nil {
		logg.Error(ctx, "shutdown finished with errors", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down cleanly")
}

func shutdown(ctx context.Context, server *http.Server, dbClient *db.Client, redisClient *redis.Client) error {
	var errs error
	if err := server.Shutdown(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := dbClient.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

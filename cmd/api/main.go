package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/retailerp-backend/api/controllers"
	"github.com/angelmondragon/retailerp-backend/api/routes"
	"github.com/angelmondragon/retailerp-backend/internal/catalog"
	"github.com/angelmondragon/retailerp-backend/internal/forms"
	"github.com/angelmondragon/retailerp-backend/internal/livesync"
	"github.com/angelmondragon/retailerp-backend/internal/orders"
	"github.com/angelmondragon/retailerp-backend/pkg/config"
	"github.com/angelmondragon/retailerp-backend/pkg/db"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/instance"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/metrics"
	"github.com/angelmondragon/retailerp-backend/pkg/migrate"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox"
	"github.com/angelmondragon/retailerp-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	instanceID := instance.GetID()
	hub := livesync.NewHub(cfg.Streams.Buffer, orderMetrics)
	defer hub.Close()
	relay, err := livesync.NewRelay(hub, redisClient, instanceID, logg)
	requireResource(ctx, logg, "livesync relay", err)
	go func() {
		if err := relay.Run(ctx, enums.CollectionOrders, enums.CollectionForms); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "livesync relay stopped", err)
		}
	}()

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), redisClient, cfg.Catalog.CacheTTL, logg)
	requireResource(ctx, logg, "catalog service", err)

	formStore, err := forms.NewRedisStore(redisClient, cfg.Forms.TTL)
	requireResource(ctx, logg, "form store", err)
	formService, err := forms.NewService(formStore, catalogService, cfg.Totals.AdvisoryTTL, logg,
		forms.WithBroadcaster(relay),
		forms.WithMetrics(orderMetrics),
	)
	requireResource(ctx, logg, "form service", err)

	orderService, err := orders.NewService(orders.Deps{
		Repo:        orders.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Outbox:      outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Stock:       catalogService,
		Broadcaster: relay,
		Forms:       formService,
		Metrics:     orderMetrics,
		Logger:      logg,
		AdvisoryTTL: cfg.Totals.AdvisoryTTL,
	})
	requireResource(ctx, logg, "order service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Catalog:      catalogService,
			Forms:        formService,
			Orders:       orderService,
			Hub:          hub,
			Redis:        redisClient,
			OrderMetrics: orderMetrics,
			HTTPMetrics:  httpMetrics,
			Gatherer:     registry,
			Pingers: map[string]controllers.Pinger{
				"db":    dbClient,
				"redis": redisClient,
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	// Streams hold connections open; closing the hub ends them before Shutdown waits.
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "api server shutdown failed", err)
	}
	logg.Info(ctx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

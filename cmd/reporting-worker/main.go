package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/retailerp-backend/internal/reporting"
	"github.com/angelmondragon/retailerp-backend/pkg/bigquery"
	"github.com/angelmondragon/retailerp-backend/pkg/config"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/retailerp-backend/pkg/pubsub"
	"github.com/angelmondragon/retailerp-backend/pkg/redis"
)

const serviceKind = "reporting-worker"

var errNoSubscription = errors.New("orders subscription not configured")

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"table":       cfg.BigQuery.OrderTotalsTable,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reporting worker stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "reporting worker shut down")
}

// run wires redis, pubsub and bigquery and consumes until ctx ends. Buffered
// rows are flushed even when the subscription loop fails.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	setupCtx := context.WithoutCancel(ctx)

	redisClient, err := redis.New(setupCtx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWithLog(ctx, logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(setupCtx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWithLog(ctx, logg, "pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(setupCtx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		return fmt.Errorf("bootstrap bigquery: %w", err)
	}
	defer closeWithLog(ctx, logg, "bigquery", bqClient.Close)

	subscription := pubsubClient.OrdersSubscription()
	if subscription == nil {
		return errNoSubscription
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return fmt.Errorf("idempotency manager: %w", err)
	}
	writer, err := reporting.NewWriter(bqClient, reporting.WriterConfig{
		OrderTotalsTable: cfg.BigQuery.OrderTotalsTable,
	})
	if err != nil {
		return fmt.Errorf("order totals writer: %w", err)
	}
	router, err := reporting.NewRouter(writer, logg)
	if err != nil {
		return fmt.Errorf("reporting router: %w", err)
	}
	worker, err := reporting.NewWorker(subscription, router, manager, logg)
	if err != nil {
		return fmt.Errorf("reporting worker: %w", err)
	}

	defer func() {
		if flushErr := writer.Flush(context.WithoutCancel(ctx)); flushErr != nil {
			logg.Error(logg.WithField(ctx, "rows", writer.Buffered()), "failed to flush buffered order totals", flushErr)
		}
	}()

	logg.Info(ctx, "reporting worker started")
	return worker.Run(ctx)
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(context.WithoutCancel(ctx), "resource", name), "close failed", err)
	}
}

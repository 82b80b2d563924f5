package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/retailerp-backend/pkg/config"
	"github.com/angelmondragon/retailerp-backend/pkg/db"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
	"github.com/angelmondragon/retailerp-backend/pkg/migrate"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox"
	"github.com/angelmondragon/retailerp-backend/pkg/outbox/registry"
	"github.com/angelmondragon/retailerp-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

func main() {
	var dlq dlqCommand
	flag.StringVar(&dlq.action, "dlq", "", "run a dead-letter command instead of publishing: list|requeue")
	flag.StringVar(&dlq.event, "event", "", "outbox event id for -dlq=requeue")
	flag.StringVar(&dlq.reason, "reason", "", "filter -dlq=list by error reason")
	flag.IntVar(&dlq.limit, "limit", 0, "max rows for -dlq=list")
	flag.Parse()

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
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "serviceKind": serviceKind})

	if dlq.action != "" {
		if err := runDLQ(ctx, cfg, logg, dlq); err != nil {
			fmt.Fprintln(os.Stderr, err)
			stop()
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}

// run owns every connection for the life of the process and closes them on
// return.
func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	// Startup work must not be cut short by an early signal.
	setupCtx := context.WithoutCancel(ctx)

	dbClient, err := db.New(setupCtx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(setupCtx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	pubsubClient, err := pubsub.NewClient(setupCtx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer closeWithLog(ctx, logg, "pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("build event registry: %w", err)
	}

	dispatcher, err := NewDispatcher(DispatcherParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "topics", eventRegistry.Topics()), "outbox publisher started")
	return dispatcher.Run(ctx)
}

// runDLQ needs only the database; it never touches Pub/Sub.
func runDLQ(ctx context.Context, cfg *config.Config, logg *logger.Logger, cmd dlqCommand) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWithLog(ctx, logg, "database", dbClient.Close)
	return cmd.run(ctx, outbox.NewDLQRepository(dbClient.DB()), os.Stdout)
}

func closeWithLog(ctx context.Context, logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(logg.WithField(context.WithoutCancel(ctx), "resource", name), "close failed", err)
	}
}

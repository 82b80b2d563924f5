package migrate

import (
	"context"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/retailerp-backend/pkg/config"
	"github.com/angelmondragon/retailerp-backend/pkg/db"
	"github.com/angelmondragon/retailerp-backend/pkg/logger"
)

// autoMigrateReason explains why a process may migrate on boot, or returns
// "" when it must not. Shared environments migrate through cmd/migrate only.
func autoMigrateReason(cfg *config.Config) string {
	switch {
	case cfg.FeatureFlags.UseSQLite:
		return "sqlite"
	case cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate:
		return "dev auto-migrate"
	}
	return ""
}

// MaybeRunDev applies the embedded migrations at startup for local setups.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	reason := autoMigrateReason(cfg)
	if reason == "" {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithFields(ctx, map[string]any{"dialect": client.Dialect(), "reason": reason})

	if err := Up(ctx, sqlDB, client.Dialect()); err != nil {
		return fmt.Errorf("auto-migrate (%s): %w", reason, err)
	}
	if version, err := goose.GetDBVersionContext(ctx, sqlDB); err == nil {
		ctx = logg.WithField(ctx, "schema_version", version)
	}
	logg.Info(ctx, "schema migrated on startup")
	return nil
}

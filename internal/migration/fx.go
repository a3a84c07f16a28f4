package migration

import (
	"context"
	"time"

	"github.com/railzwaylabs/dormitory/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// migrateTimeout bounds the wait for the schema lock plus the files.
const migrateTimeout = 2 * time.Minute

var Module = fx.Module("migrations",
	fx.Invoke(Migrate),
)

// Migrate brings the schema up to date for the configured driver.
func Migrate(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	log = log.Named("migration").With(zap.String("driver", cfg.Database.Driver))
	if cfg.Database.Driver == config.DriverSQLite {
		log.Info("running auto migration")
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	return Up(ctx, sqlDB, log)
}

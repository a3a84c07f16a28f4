package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// ErrDirtySchema means an earlier run stopped halfway through a file. The
// schema has to be repaired by hand and the version forced before billing
// can start again.
var ErrDirtySchema = errors.New("dirty schema")

// Up applies every pending PostgreSQL migration. Replicas that boot together
// queue on the schema lock, so the files run once.
func Up(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	lock, err := lockSchema(ctx, db)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			log.Warn("release schema lock", zap.Error(err))
		}
	}()

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	from, err := schemaVersion(m)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, err := schemaVersion(m)
	if err != nil {
		return err
	}

	if from == to {
		log.Info("schema already current", zap.Uint("version", to))
	} else {
		log.Info("schema migrated", zap.Uint("from", from), zap.Uint("to", to))
	}
	return nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// schemaVersion reports 0 for an empty database.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	return version, nil
}

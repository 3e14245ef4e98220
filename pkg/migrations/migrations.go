// Package migrations brings the database up to date: the gorm-managed
// pipeline tables and river's queue schema.
package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"github.com/nclamvn/prismy-ultimate/internal/store"
)

func MigrateStore(ctx context.Context, s store.Store, pool *pgxpool.Pool) error {
	if err := s.InitialMigration(); err != nil {
		return err
	}

	if pool != nil {
		if err := migrateRiver(ctx, pool); err != nil {
			return fmt.Errorf("river migrations: %w", err)
		}
	}
	return nil
}

func migrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	_, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	return err
}

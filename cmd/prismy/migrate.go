package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/pkg/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		logger := initLogger(cfg)
		defer func() { _ = logger.Sync() }()
		log := zap.S().Named("migrate")
		defer log.Info("db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			log.Fatalf("initializing data store: %v", err)
		}
		dataStore := store.NewStore(db, cfg.Pipeline.JobTTL)
		defer dataStore.Close()

		ctx := context.Background()
		pool, err := newPgxPool(ctx, cfg)
		if err != nil {
			log.Fatalf("connecting queue pool: %v", err)
		}
		defer pool.Close()

		if err := migrations.MigrateStore(ctx, dataStore, pool); err != nil {
			log.Fatalf("running migrations: %v", err)
		}
		return nil
	},
}

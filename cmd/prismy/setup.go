package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/pkg/log"
)

func initLogger(cfg *config.Config) *zap.Logger {
	logger := log.InitLog(log.AtomicLevelFrom(cfg.Service.LogLevel))
	zap.ReplaceGlobals(logger)
	return logger
}

// newPgxPool opens the pgx pool the river queues run on. The queues require
// postgres; sqlite only backs the store in tests.
func newPgxPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Database.Type != "pgsql" {
		return nil, fmt.Errorf("pipeline queues require a postgres database, got type %q", cfg.Database.Type)
	}
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Hostname,
		cfg.Database.Port,
		cfg.Database.Name,
	)
	return pgxpool.New(ctx, dsn)
}

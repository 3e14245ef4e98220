package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apiserver "github.com/nclamvn/prismy-ultimate/internal/api_server"
	"github.com/nclamvn/prismy-ultimate/internal/config"
	"github.com/nclamvn/prismy-ultimate/internal/pipeline"
	"github.com/nclamvn/prismy-ultimate/internal/store"
	"github.com/nclamvn/prismy-ultimate/internal/translation"
	"github.com/nclamvn/prismy-ultimate/internal/translation/providers"
	"github.com/nclamvn/prismy-ultimate/pkg/migrations"
	"github.com/nclamvn/prismy-ultimate/pkg/objstore"
)

var runOffline bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the translation pipeline workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}
		logger := initLogger(cfg)
		defer func() { _ = logger.Sync() }()
		log := zap.S().Named("run")
		log.Info("starting pipeline service")
		defer log.Info("pipeline service stopped")

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		db, err := store.InitDB(cfg)
		if err != nil {
			log.Fatalf("initializing data store: %v", err)
		}
		dataStore := store.NewStore(db, cfg.Pipeline.JobTTL)
		defer dataStore.Close()

		pool, err := newPgxPool(ctx, cfg)
		if err != nil {
			log.Fatalf("connecting queue pool: %v", err)
		}
		defer pool.Close()

		if err := migrations.MigrateStore(ctx, dataStore, pool); err != nil {
			log.Fatalf("running migrations: %v", err)
		}

		registry := providers.BuildRegistry(providers.OpenAIConfig{
			APIKey:  cfg.Translation.OpenAIAPIKey,
			Model:   cfg.Translation.OpenAIModel,
			BaseURL: cfg.Translation.OpenAIBaseURL,
			Timeout: cfg.Translation.OpenAITimeout,
		}, runOffline)
		manager := translation.NewManager(registry, translation.Config{
			Concurrency: cfg.Translation.Concurrency,
			MaxAttempts: cfg.Translation.MaxAttempts,
			RetryDelay:  cfg.Translation.RetryDelay,
		})

		objects, err := newObjectStore(cfg)
		if err != nil {
			log.Fatalf("initializing object store: %v", err)
		}
		log.Infof("storing outputs in %s", objects.Type())

		client, err := pipeline.NewClient(pool, dataStore, manager, objects, cfg)
		if err != nil {
			log.Fatalf("building pipeline client: %v", err)
		}
		if err := client.Start(ctx); err != nil {
			log.Fatalf("starting pipeline client: %v", err)
		}

		go func() {
			defer cancel()
			listener, err := net.Listen("tcp", cfg.Service.MetricsAddress)
			if err != nil {
				log.Fatalf("creating metrics listener: %v", err)
			}
			server := apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener)
			if err := server.Run(ctx); err != nil {
				log.Fatalf("running metrics server: %v", err)
			}
		}()

		go runCleanupSweep(ctx, dataStore, cfg.Pipeline.CleanupInterval)

		<-ctx.Done()

		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := client.Stop(stopCtx); err != nil {
			log.Warnf("stopping pipeline client: %v", err)
		}
		return nil
	},
}

// runCleanupSweep periodically deletes jobs and artifacts whose TTL elapsed.
func runCleanupSweep(ctx context.Context, dataStore store.Store, interval time.Duration) {
	log := zap.S().Named("cleanup")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			deleted, err := dataStore.DeleteExpired(ctx)
			if err != nil {
				log.Warnf("cleanup sweep failed: %v", err)
				continue
			}
			if deleted > 0 {
				log.Infof("cleanup sweep removed %d expired records", deleted)
			}
		case <-ctx.Done():
			return
		}
	}
}

func newObjectStore(cfg *config.Config) (objstore.ObjectStore, error) {
	if cfg.Storage.MinioEndpoint != "" {
		return objstore.NewMinioStore(
			objstore.WithEndpoint(cfg.Storage.MinioEndpoint),
			objstore.WithBucket(cfg.Storage.MinioBucket),
			objstore.WithAccessKey(cfg.Storage.MinioAccessKey),
			objstore.WithSecretKey(cfg.Storage.MinioSecretKey),
			objstore.WithSSL(cfg.Storage.MinioUseSSL),
		)
	}
	return objstore.NewFilesystemStore(cfg.Storage.OutputDir)
}

func init() {
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "use the static translation backend instead of remote providers")
}

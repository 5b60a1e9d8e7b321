package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediaforge/internal/adapter/repo"
	"mediaforge/internal/infra"
	"mediaforge/internal/infra/credentials"
	"mediaforge/internal/provider"
	"mediaforge/internal/reconcile"
	"mediaforge/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconciler: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	tasks := repo.NewTaskRepository(runner)
	metrics := repo.NewMetricsRepository(runner)

	backend, err := newStorageBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconciler: failed to configure storage")
	}
	assetStore, err := storage.NewAssetStore(backend, cfg.StoragePrefix, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("reconciler: failed to configure asset store")
	}

	apiKey := strings.TrimSpace(cfg.ProviderAPIKey)
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		keyFromStore, err := credStore.GenerationAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("reconciler: failed to load provider api key from store")
		} else {
			apiKey = keyFromStore
		}
	}
	if apiKey == "" {
		logger.Fatal().Msg("reconciler: provider api key is not configured")
	}

	providerClient, err := provider.NewClient(provider.Options{
		APIKey:  apiKey,
		BaseURL: cfg.ProviderBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("reconciler: failed to configure provider client")
	}

	reconciler := reconcile.New(tasks, providerClient, assetStore, metrics, logger)

	logger.Info().
		Dur("interval", cfg.ReconcileInterval).
		Int("batch_limit", cfg.ReconcileBatchLimit).
		Msg("reconciler: started")

	if err := run(ctx, reconciler, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("reconciler: stopped with error")
	}
	logger.Info().Msg("reconciler: stopped")
}

func run(ctx context.Context, reconciler *reconcile.Reconciler, cfg *infra.Config, logger infra.Logger) error {
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		summary, err := reconciler.ReconcileBatch(ctx, cfg.ReconcileBatchLimit)
		if err != nil {
			logger.Error().Err(err).Msg("reconciler: batch failed")
		} else if summary.Processed > 0 {
			logger.Info().Int("processed", summary.Processed).Msg("reconciler: batch done")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func newStorageBackend(ctx context.Context, cfg *infra.Config) (storage.Backend, error) {
	if cfg.StorageDriver == "s3" {
		return storage.NewS3Store(ctx, storage.S3Options{
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			Secure:        cfg.S3Secure,
			PublicBaseURL: cfg.StoragePublicBaseURL,
		})
	}
	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	baseURL := cfg.StoragePublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Port + "/static"
	}
	return storage.NewFileStore(storagePath, baseURL)
}

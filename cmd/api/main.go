package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mediaforge/internal/adapter/repo"
	httpapi "mediaforge/internal/http"
	"mediaforge/internal/http/handlers"
	"mediaforge/internal/infra"
	"mediaforge/internal/infra/credentials"
	"mediaforge/internal/infra/geoip"
	"mediaforge/internal/middleware"
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

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	tasks := repo.NewTaskRepository(runner)
	metrics := repo.NewMetricsRepository(runner)

	backend, err := newStorageBackend(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}
	assetStore, err := storage.NewAssetStore(backend, cfg.StoragePrefix, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure asset store")
	}

	apiKey := cfg.ProviderAPIKey
	if apiKey == "" {
		credStore := credentials.NewStore(runner)
		if key, err := credStore.GenerationAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("api: failed to load provider api key from store")
		} else {
			apiKey = key
		}
	}
	providerClient, err := provider.NewClient(provider.Options{
		APIKey:  apiKey,
		BaseURL: cfg.ProviderBaseURL,
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure provider client")
	}

	reconciler := reconcile.New(tasks, providerClient, assetStore, metrics, logger)

	var countryLookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip resolver unavailable")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	app := &handlers.App{
		Cfg:        cfg,
		Logger:     logger,
		Tasks:      tasks,
		Metrics:    metrics,
		Provider:   providerClient,
		Reconciler: reconciler,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}

	staticDir := ""
	if cfg.StorageDriver != "s3" {
		staticDir = cfg.StoragePath
	}
	router := httpapi.NewRouter(app, countryLookup, staticDir)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
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
	baseURL := cfg.StoragePublicBaseURL
	if baseURL == "" {
		baseURL = "http://localhost:" + cfg.Port + "/static"
	}
	return storage.NewFileStore(cfg.StoragePath, baseURL)
}

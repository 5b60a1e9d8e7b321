package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	JWTSecret      string
	GeoIPDBPath    string
	AllowedOrigins []string

	ProviderBaseURL string
	ProviderAPIKey  string

	ReconcileSecret     string
	ReconcileBatchLimit int
	ReconcileInterval   time.Duration

	StorageDriver        string
	StoragePath          string
	StoragePrefix        string
	StoragePublicBaseURL string
	S3Endpoint           string
	S3AccessKey          string
	S3SecretKey          string
	S3Bucket             string
	S3Secure             bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		ProviderBaseURL: getEnv("PROVIDER_BASE_URL", "https://api.mediaprovider.example/v1"),
		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),

		ReconcileSecret:     os.Getenv("RECONCILE_SECRET"),
		ReconcileBatchLimit: getEnvInt("RECONCILE_BATCH_LIMIT", 10),
		ReconcileInterval:   time.Second * time.Duration(getEnvInt("RECONCILE_INTERVAL_SECONDS", 60)),

		StorageDriver:        getEnv("STORAGE_DRIVER", "file"),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		StoragePrefix:        getEnv("STORAGE_PREFIX", "mediaforge"),
		StoragePublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		S3Endpoint:           os.Getenv("S3_ENDPOINT"),
		S3AccessKey:          os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:          os.Getenv("S3_SECRET_KEY"),
		S3Bucket:             getEnv("S3_BUCKET", "mediaforge"),
		S3Secure:             getEnvBool("S3_SECURE", true),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	// The reconcile trigger must never run unauthenticated outside development.
	if cfg.AppEnv != "development" && cfg.ReconcileSecret == "" {
		return nil, fmt.Errorf("RECONCILE_SECRET is required when APP_ENV=%s", cfg.AppEnv)
	}

	if cfg.StorageDriver == "s3" && cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("S3_ENDPOINT is required when STORAGE_DRIVER=s3")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}

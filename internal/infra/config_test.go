package infra

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/test")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.AppEnv != "development" || cfg.Port != "8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.StorageDriver != "file" || cfg.StoragePrefix != "mediaforge" {
		t.Fatalf("storage defaults = %q %q", cfg.StorageDriver, cfg.StoragePrefix)
	}
	if cfg.ReconcileBatchLimit != 10 || cfg.ReconcileInterval != 60*time.Second {
		t.Fatalf("reconcile defaults = %d %v", cfg.ReconcileBatchLimit, cfg.ReconcileInterval)
	}
	if cfg.RateLimitPerMin != 30 {
		t.Fatalf("rate limit = %d", cfg.RateLimitPerMin)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "x")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("JWT_SECRET", "")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadConfigReconcileSecretOutsideDevelopment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("RECONCILE_SECRET", "")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "RECONCILE_SECRET") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("RECONCILE_SECRET", "trigger-secret")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ReconcileSecret != "trigger-secret" {
		t.Fatalf("secret = %q", cfg.ReconcileSecret)
	}
}

func TestLoadConfigS3RequiresEndpoint(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_ENDPOINT", "")

	if _, err := LoadConfig(); err == nil || !strings.Contains(err.Error(), "S3_ENDPOINT") {
		t.Fatalf("err = %v", err)
	}

	t.Setenv("S3_ENDPOINT", "minio.internal:9000")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.S3Endpoint != "minio.internal:9000" || cfg.S3Bucket != "mediaforge" {
		t.Fatalf("s3 cfg = %+v", cfg)
	}
}

func TestLoadConfigSplitsOrigins(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigIgnoresInvalidInts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RECONCILE_BATCH_LIMIT", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ReconcileBatchLimit != 10 {
		t.Fatalf("batch limit = %d, want fallback 10", cfg.ReconcileBatchLimit)
	}
}

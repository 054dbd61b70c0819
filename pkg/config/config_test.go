package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.App.Port)
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}
	if cfg.Payment.PollInterval != 3*time.Second {
		t.Fatalf("expected 3s poll interval, got %v", cfg.Payment.PollInterval)
	}
	if cfg.Payment.Timeout != 120*time.Second {
		t.Fatalf("expected 120s payment timeout, got %v", cfg.Payment.Timeout)
	}
	if cfg.Payment.SuccessGrace != 2*time.Second {
		t.Fatalf("expected 2s success grace, got %v", cfg.Payment.SuccessGrace)
	}
	if cfg.Payment.Retention != 15*time.Minute {
		t.Fatalf("expected 15m payment retention, got %v", cfg.Payment.Retention)
	}
	if cfg.API.BaseURL() != "https://markethub-cjf9.onrender.com/api/v1" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL())
	}
	if cfg.API.FallbackURL() != "http://localhost:5000/api/v1" {
		t.Fatalf("unexpected fallback url %q", cfg.API.FallbackURL())
	}
	if cfg.Kafka.Enabled() {
		t.Fatalf("kafka should be disabled without brokers")
	}
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Fatalf("expected default CORS origins, got %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsTimeoutShorterThanInterval(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPaymentPoll, "5s")
	t.Setenv(EnvPaymentTimeout, "4s")

	if _, err := Load(); err == nil {
		t.Fatal("expected invalid payment timings to fail")
	}
}

func TestLoad_RejectsRetentionWithinGrace(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvPaymentRetention, "1s")

	if _, err := Load(); err == nil {
		t.Fatal("expected retention shorter than the success grace to fail")
	}
}

func TestLoad_RejectsRelativeAPIURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPILocalURL, "localhost:5000")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative api url to fail")
	}
}

func TestLoad_KafkaBrokersList(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvKafkaBrokers, "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.Kafka.Enabled() || len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvJWTSecret, "secret")
}

func TestAPIConfigTargets(t *testing.T) {
	local := APIConfig{ProductionURL: "https://api.example.com", LocalURL: "http://localhost:5000", UseProduction: false, Fallback: true}
	if local.BaseURL() != "http://localhost:5000" {
		t.Fatalf("expected local base url, got %q", local.BaseURL())
	}
	if local.FallbackURL() != "" {
		t.Fatalf("local target should not fall back, got %q", local.FallbackURL())
	}

	noFallback := APIConfig{ProductionURL: "https://api.example.com", LocalURL: "http://localhost:5000", UseProduction: true}
	if noFallback.FallbackURL() != "" {
		t.Fatalf("fallback disabled should yield empty url")
	}
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}

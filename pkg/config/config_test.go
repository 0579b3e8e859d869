package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	return cfg
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_RateLimiting_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"http rps must be > 0", func(c *Config) { c.RateLimiting.HTTP.RequestsPerSecond = 0 }},
		{"http burst must be > 0", func(c *Config) { c.RateLimiting.HTTP.Burst = 0 }},
		{"http max concurrent must be >= 0", func(c *Config) { c.RateLimiting.HTTP.MaxConcurrent = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestValidate_MissingPostgresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Postgres.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty postgres dsn")
	}
}

func TestValidate_BackendTimeouts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend.DefaultTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero backend default timeout")
	}
}

func TestLoad_UsesDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "non-existent-config.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default server address, got %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default logging level, got %q", cfg.Logging.Level)
	}
}

func TestLoad_LoadsFromYAMLAndAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ":9000"
  read_timeout: 10s
  write_timeout: 15s
  shutdown_timeout: 5s

postgres:
  dsn: "postgres://example/db"
  pool_size: 10
  idle_size: 2
  timeout: 3s

backend:
  default_timeout: 2s
  stream_upload_timeout: 20s
  transaction_watchdog_check_period: 1s
  compliant_api_version: "v1"
  circuit_breaker_threshold: 3
  circuit_breaker_reset_timeout: 10s

room:
  max_duration: 2h
  orphaned_room_timeout: 5m

outbox:
  messages_per_try: 5
  poll_interval: 200ms
  max_delivery_interval: 1m
  drain_deadline: 5s

vacuum:
  sweep_interval: 10s

logging:
  level: "debug"
  format: "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	t.Setenv("CONFERENCE_SERVER_ADDRESS", ":7000")
	t.Setenv("CONFERENCE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Fatalf("expected read timeout 10s, got %v", cfg.Server.ReadTimeout)
	}
	if cfg.Backend.CircuitBreakerThreshold != 3 {
		t.Fatalf("expected circuit breaker threshold 3, got %d", cfg.Backend.CircuitBreakerThreshold)
	}
	if cfg.Server.Address != ":7000" {
		t.Fatalf("expected env override address, got %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env override logging level, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  address: ""
postgres:
  dsn: ""
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for invalid config")
	}
}

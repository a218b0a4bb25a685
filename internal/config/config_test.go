package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")

	if _, err := Load(); err == nil {
		t.Error("Expected error when DATABASE_URL is missing")
	}
}

func TestLoadRequiresRabbitMQURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/questline")
	t.Setenv("RABBITMQ_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Expected error when RABBITMQ_URL is missing")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/questline")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.OracleProvider != "openai" {
		t.Errorf("OracleProvider = %q, want openai", cfg.OracleProvider)
	}
	if cfg.OracleTimeout != 30*time.Second {
		t.Errorf("OracleTimeout = %v, want 30s", cfg.OracleTimeout)
	}
	if cfg.RabbitMQPrefetch != 1 {
		t.Errorf("RabbitMQPrefetch = %d, want 1", cfg.RabbitMQPrefetch)
	}
	if cfg.AnalyzeRateLimit != "5-S" {
		t.Errorf("AnalyzeRateLimit = %q, want 5-S", cfg.AnalyzeRateLimit)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/questline")
	t.Setenv("RABBITMQ_URL", "amqp://localhost")
	t.Setenv("ORACLE_TIMEOUT", "45s")
	t.Setenv("RABBITMQ_PREFETCH", "8")
	t.Setenv("WORKER_DEBUG_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.OracleTimeout != 45*time.Second {
		t.Errorf("OracleTimeout = %v, want 45s", cfg.OracleTimeout)
	}
	if cfg.RabbitMQPrefetch != 8 {
		t.Errorf("RabbitMQPrefetch = %d, want 8", cfg.RabbitMQPrefetch)
	}
	if !cfg.WorkerDebugMode {
		t.Error("WorkerDebugMode = false, want true")
	}
}

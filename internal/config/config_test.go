package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("Given a minimal file When loading Then defaults fill the gaps", func(t *testing.T) {
		path := writeConfigFile(t, `
server:
  port: "9000"
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Server.Port != "9000" {
			t.Errorf("expected the configured port, got %q", cfg.Server.Port)
		}
		if cfg.Server.ReadTimeout != 10*time.Second {
			t.Errorf("expected default read timeout, got %v", cfg.Server.ReadTimeout)
		}
		if cfg.Database.Driver != "postgres" {
			t.Errorf("expected default driver postgres, got %q", cfg.Database.Driver)
		}
		if cfg.Freshness.MinFetchDays != 200 {
			t.Errorf("expected default minFetchDays 200, got %d", cfg.Freshness.MinFetchDays)
		}
		if cfg.Freshness.NewsStaleAfter != 6*time.Hour {
			t.Errorf("expected default newsStaleAfter 6h, got %v", cfg.Freshness.NewsStaleAfter)
		}
		if cfg.Freshness.NewsSufficientCount != 5 {
			t.Errorf("expected default newsSufficientCount 5, got %d", cfg.Freshness.NewsSufficientCount)
		}
		if cfg.Kafka.Topics["pricesIngested"] != "prices.ingested" {
			t.Errorf("expected default prices topic, got %q", cfg.Kafka.Topics["pricesIngested"])
		}
		if cfg.Cache.Enabled {
			t.Error("expected the cache disabled by default")
		}
		if cfg.Archive.Type != "none" {
			t.Errorf("expected default archive type none, got %q", cfg.Archive.Type)
		}
		if cfg.Refresh.CronSpec == "" {
			t.Error("expected a default refresh cron spec")
		}
	})

	t.Run("Given explicit values When loading Then they override the defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
database:
  driver: sqlite
  path: /tmp/test.db
freshness:
  minFetchDays: 50
  newsStaleAfter: 30m
cache:
  enabled: true
  addr: redis:6379
kafka:
  brokers: broker1:9092,broker2:9092
  topics:
    pricesIngested: custom.prices
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/test.db" {
			t.Errorf("expected sqlite overrides, got driver=%q path=%q", cfg.Database.Driver, cfg.Database.Path)
		}
		if cfg.Freshness.MinFetchDays != 50 {
			t.Errorf("expected minFetchDays 50, got %d", cfg.Freshness.MinFetchDays)
		}
		if cfg.Freshness.NewsStaleAfter != 30*time.Minute {
			t.Errorf("expected newsStaleAfter 30m, got %v", cfg.Freshness.NewsStaleAfter)
		}
		if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis:6379" {
			t.Errorf("expected cache overrides, got enabled=%v addr=%q", cfg.Cache.Enabled, cfg.Cache.Addr)
		}
		if cfg.Kafka.Brokers != "broker1:9092,broker2:9092" {
			t.Errorf("expected broker list, got %q", cfg.Kafka.Brokers)
		}
		if cfg.Kafka.Topics["pricesIngested"] != "custom.prices" {
			t.Errorf("expected custom prices topic, got %q", cfg.Kafka.Topics["pricesIngested"])
		}
		// Untouched sections keep their defaults.
		if cfg.Freshness.NewsDefaultLimit != 20 {
			t.Errorf("expected default newsDefaultLimit 20, got %d", cfg.Freshness.NewsDefaultLimit)
		}
	})

	t.Run("Given a missing file When loading Then an error is returned", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected an error for a missing config file")
		}
	})
}

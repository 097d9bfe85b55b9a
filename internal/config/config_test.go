package config

import (
	"testing"
	"time"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.OpenAIAPIKey != "" {
		t.Fatalf("expected AI scoring disabled when OPENAI_API_KEY is unset")
	}
}

func TestLoadParsesListsAndDurations(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("TREND_CACHE_TTL", "90m")
	t.Setenv("MAINTENANCE_INTERVAL", "0")
	t.Setenv("WAREHOUSE_STORE_ID", "")
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "")

	cfg := Load()
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.TrendCacheTTL != 90*time.Minute {
		t.Fatalf("expected 90m trend ttl, got %s", cfg.TrendCacheTTL)
	}
	if cfg.MaintenanceInterval != 0 {
		t.Fatalf("expected maintenance disabled, got %s", cfg.MaintenanceInterval)
	}
	if cfg.WarehouseStoreID != "warehouse" {
		t.Fatalf("expected default warehouse id, got %q", cfg.WarehouseStoreID)
	}
	if cfg.PublicBaseURL != "http://127.0.0.1:9090" || cfg.Address() != ":9090" {
		t.Fatalf("unexpected address config: %q %q", cfg.PublicBaseURL, cfg.Address())
	}
}

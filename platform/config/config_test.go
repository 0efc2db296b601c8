package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetSequenceMaxAttempts() != 10 {
		t.Errorf("expected 10 attempts, got %d", cfg.GetSequenceMaxAttempts())
	}
	if cfg.GetSequenceBaseDelay() != 25*time.Millisecond || cfg.GetSequenceMaxDelay() != 300*time.Millisecond {
		t.Errorf("unexpected backoff %s/%s", cfg.GetSequenceBaseDelay(), cfg.GetSequenceMaxDelay())
	}
	if cfg.GetAssignConcurrency() != 10 {
		t.Errorf("expected assign concurrency 10, got %d", cfg.GetAssignConcurrency())
	}
	if !cfg.UsesMemoryStore() {
		t.Error("expected memory store")
	}
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsRedisCounterWithoutURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("COUNTER_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without REDIS_URL")
	}
}

func TestLeadCodeTimezone(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("LEAD_CODE_TIMEZONE", "Asia/Kolkata")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetLeadCodeLocation().String() != "Asia/Kolkata" {
		t.Fatalf("unexpected location %s", cfg.GetLeadCodeLocation())
	}

	t.Setenv("LEAD_CODE_TIMEZONE", "Nowhere/Special")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

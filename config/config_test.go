package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIBaseURL != "http://localhost:6688" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
	if cfg.MirrorEnabled {
		t.Fatal("mirror should default off")
	}
	if cfg.PGDBPrefix != "hotfeed" {
		t.Fatalf("PGDBPrefix = %q", cfg.PGDBPrefix)
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("kafka should default off, got %v", cfg.KafkaBrokers)
	}
	if cfg.S3Bucket != "" {
		t.Fatalf("s3 should default off, got %q", cfg.S3Bucket)
	}
	if cfg.CycleMin != 30*time.Minute || cfg.CycleMax != 60*time.Minute {
		t.Fatalf("cycle bounds = %s/%s", cfg.CycleMin, cfg.CycleMax)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HOT_API_URL", "http://10.0.0.1:6688")
	t.Setenv("REDIS_PORT", "6390")
	t.Setenv("REDIS_MIRROR_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CYCLE_MIN_MINUTES", "45")
	t.Setenv("CYCLE_MAX_MINUTES", "10")

	cfg := Load()
	if cfg.APIBaseURL != "http://10.0.0.1:6688" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.Redis.Port != 6390 {
		t.Fatalf("redis port = %d", cfg.Redis.Port)
	}
	if !cfg.MirrorEnabled {
		t.Fatal("mirror should be enabled")
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	// An inverted range clamps max to min.
	if cfg.CycleMax != cfg.CycleMin {
		t.Fatalf("cycle bounds = %s/%s; want clamped", cfg.CycleMin, cfg.CycleMax)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT_BAD", "nope")
	if got := envInt("X_INT_BAD", 7); got != 7 {
		t.Fatalf("envInt bad value = %d; want default", got)
	}

	cases := []struct {
		val  string
		want bool
	}{
		{"1", true}, {"true", true}, {"YES", true}, {"on", true},
		{"0", false}, {"false", false}, {"off", false},
		{"maybe", true}, // falls back to default
	}
	for _, c := range cases {
		t.Setenv("X_BOOL", c.val)
		if got := envBool("X_BOOL", true); got != c.want {
			t.Fatalf("envBool(%q) = %v; want %v", c.val, got, c.want)
		}
	}
}

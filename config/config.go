package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RedisConfig holds connection settings for one Redis target.
type RedisConfig struct {
	Host     string
	Port     int
	DB       int
	Password string
}

// Addr returns the host:port form go-redis expects.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + strconv.Itoa(r.Port)
}

// Config is the full configuration surface of the poller.
// Every field has a default suitable for local development.
type Config struct {
	// APIBaseURL is the upstream aggregator base, e.g. http://localhost:6688
	APIBaseURL string

	Redis RedisConfig
	// MirrorEnabled turns on the secondary ranked-cache target.
	MirrorEnabled bool
	Mirror        RedisConfig

	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	// PGDBPrefix derives yearly shard database names, e.g. hotfeed -> hotfeed_2024.
	PGDBPrefix string

	// KafkaBrokers enables the ingest-summary publisher when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// S3Bucket enables raw snapshot archiving when non-empty.
	S3Bucket string
	S3Region string
	S3Prefix string

	// HealthAddr serves /health and /status when non-empty, e.g. :8080.
	HealthAddr string

	CycleMin time.Duration
	CycleMax time.Duration
}

// Load reads configuration from the environment.
func Load() Config {
	cfg := Config{
		APIBaseURL: envString("HOT_API_URL", "http://localhost:6688"),
		Redis: RedisConfig{
			Host:     envString("REDIS_HOST", "localhost"),
			Port:     envInt("REDIS_PORT", 6379),
			DB:       envInt("REDIS_DB", 0),
			Password: envString("REDIS_PASSWORD", ""),
		},
		MirrorEnabled: envBool("REDIS_MIRROR_ENABLED", false),
		Mirror: RedisConfig{
			Host:     envString("REDIS_MIRROR_HOST", "localhost"),
			Port:     envInt("REDIS_MIRROR_PORT", 6380),
			DB:       envInt("REDIS_MIRROR_DB", 0),
			Password: envString("REDIS_MIRROR_PASSWORD", ""),
		},
		PGHost:     envString("PG_HOST", "localhost"),
		PGPort:     envInt("PG_PORT", 5432),
		PGUser:     envString("PG_USER", "postgres"),
		PGPassword: envString("PG_PASSWORD", "password"),
		PGDBPrefix: envString("PG_DB_PREFIX", "hotfeed"),
		KafkaTopic: envString("KAFKA_TOPIC", "hotfeed.ingest"),
		S3Bucket:   envString("S3_BUCKET", ""),
		S3Region:   envString("S3_REGION", ""),
		S3Prefix:   envString("S3_PREFIX", ""),
		HealthAddr: envString("HEALTH_ADDR", ""),
		CycleMin:   time.Duration(envInt("CYCLE_MIN_MINUTES", 30)) * time.Minute,
		CycleMax:   time.Duration(envInt("CYCLE_MAX_MINUTES", 60)) * time.Minute,
	}

	if brokers := envString("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.CycleMax < cfg.CycleMin {
		cfg.CycleMax = cfg.CycleMin
	}
	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}

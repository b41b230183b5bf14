package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	HTTPPort    string
	PostgresDSN string
	RedisAddr   string
	TokenSecret string

	SweepInterval time.Duration
	TallyCacheTTL time.Duration

	EnableDeadlineSweeper bool
	EnableOutboxRelay     bool
	EnableTallyCache      bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "quorum"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		ServiceName: service,
		HTTPPort:    port,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),
		TokenSecret: os.Getenv("TOKEN_SECRET"),

		SweepInterval: envSeconds("SWEEP_INTERVAL_SECONDS", 30*time.Second),
		TallyCacheTTL: envSeconds("TALLY_CACHE_TTL_SECONDS", 30*time.Second),

		EnableDeadlineSweeper: envBool("ENABLE_DEADLINE_SWEEPER", true),
		EnableOutboxRelay:     envBool("ENABLE_OUTBOX_RELAY", true),
		EnableTallyCache:      envBool("ENABLE_TALLY_CACHE", true),
	}, nil
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	StoreBackend string
	PostgresDSN  string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	KafkaBrokers []string
	Admins       []string

	OutboxPollInterval  time.Duration
	EnableAuditConsumer bool
	ShutdownTimeout     time.Duration
}

// Load resolves configuration from defaults, an optional election-ledger.yaml,
// a .env file and the process environment, in increasing precedence.
func Load() (Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("SERVICE_NAME", "election-ledger")
	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("STORE_BACKEND", StoreBackendMemory)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "electionledger:")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("LEDGER_ADMINS", "")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("ENABLE_AUDIT_CONSUMER", true)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetConfigName("election-ledger")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		ServiceName:         strings.TrimSpace(v.GetString("SERVICE_NAME")),
		HTTPPort:            strings.TrimSpace(v.GetString("HTTP_PORT")),
		StoreBackend:        strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		PostgresDSN:         strings.TrimSpace(v.GetString("POSTGRES_DSN")),
		RedisAddr:           strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		RedisKeyPrefix:      strings.TrimSpace(v.GetString("REDIS_KEY_PREFIX")),
		KafkaBrokers:        splitList(v.GetString("KAFKA_BROKERS")),
		Admins:              splitList(v.GetString("LEDGER_ADMINS")),
		OutboxPollInterval:  v.GetDuration("OUTBOX_POLL_INTERVAL"),
		EnableAuditConsumer: v.GetBool("ENABLE_AUDIT_CONSUMER"),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.OutboxPollInterval <= 0 {
		cfg.OutboxPollInterval = 2 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	switch cfg.StoreBackend {
	case StoreBackendMemory, StoreBackendRedis:
	case StoreBackendPostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, errors.New("POSTGRES_DSN is required when STORE_BACKEND=postgres")
		}
	default:
		return Config{}, fmt.Errorf("unsupported STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var items []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			items = append(items, value)
		}
	}
	return items
}

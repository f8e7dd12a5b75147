package store

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRedisPrefix namespaces archive keys when no prefix is configured.
const DefaultRedisPrefix = "ai-dispatch:turns:"

// RedisConfigFromEnv returns a copy of base with its blank fields taken from
// REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, REDIS_PREFIX, REDIS_MAX_TURNS and REDIS_TTL.
func RedisConfigFromEnv(base RedisConfig) *RedisConfig {
	cfg := base
	cfg.Addr = orEnv(cfg.Addr, "REDIS_ADDR", "localhost:6379")
	cfg.Password = orEnv(cfg.Password, "REDIS_PASSWORD", "")
	cfg.Prefix = orEnv(cfg.Prefix, "REDIS_PREFIX", DefaultRedisPrefix)
	if cfg.DB == 0 {
		cfg.DB = envInt("REDIS_DB", 0)
	}
	if cfg.MaxTurns == 0 {
		cfg.MaxTurns = envInt("REDIS_MAX_TURNS", 0)
	}
	if cfg.TTL == 0 {
		cfg.TTL = envDuration("REDIS_TTL", 0)
	}
	return &cfg
}

// PostgresConfigFromEnv overlays POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER,
// POSTGRES_PASSWORD, POSTGRES_DB and POSTGRES_SSLMODE on DefaultPostgresConfig.
func PostgresConfigFromEnv() *PostgresConfig {
	cfg := DefaultPostgresConfig()
	cfg.Host = orEnv("", "POSTGRES_HOST", cfg.Host)
	cfg.Port = envInt("POSTGRES_PORT", cfg.Port)
	cfg.User = orEnv("", "POSTGRES_USER", cfg.User)
	cfg.Password = orEnv("", "POSTGRES_PASSWORD", cfg.Password)
	cfg.DBName = orEnv("", "POSTGRES_DB", cfg.DBName)
	cfg.SSLMode = orEnv("", "POSTGRES_SSLMODE", cfg.SSLMode)
	return cfg
}

// PostgresDSN returns dsn when set, then POSTGRES_DSN, and finally the DSN of
// PostgresConfigFromEnv.
func PostgresDSN(dsn string) string {
	if dsn = orEnv(dsn, "POSTGRES_DSN", ""); dsn != "" {
		return dsn
	}
	return PostgresConfigFromEnv().DSN()
}

// MongoConfigFromEnv returns a copy of base with its blank fields taken from
// MONGODB_URI, MONGODB_DB and MONGODB_COLLECTION, then from DefaultMongoConfig.
func MongoConfigFromEnv(base MongoConfig) *MongoConfig {
	def := DefaultMongoConfig()
	cfg := base
	cfg.URI = orEnv(cfg.URI, "MONGODB_URI", def.URI)
	cfg.Database = orEnv(cfg.Database, "MONGODB_DB", def.Database)
	cfg.Collection = orEnv(cfg.Collection, "MONGODB_COLLECTION", def.Collection)
	return &cfg
}

func orEnv(value, key, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return d
}

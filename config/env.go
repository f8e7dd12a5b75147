package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables that override file settings. Secrets belong here
// rather than in the config file.
const (
	EnvAIEndpoint          = "DISPATCH_AI_ENDPOINT"
	EnvAIKey               = "DISPATCH_AI_KEY"
	EnvAIModel             = "DISPATCH_AI_MODEL"
	EnvDocsAIKey           = "DISPATCH_DOCS_AI_KEY"
	EnvBillingAIKey        = "DISPATCH_BILLING_AI_KEY"
	EnvOpenSearchEndpoint  = "DISPATCH_OPENSEARCH_ENDPOINT"
	EnvOpenSearchAPIKey    = "DISPATCH_OPENSEARCH_API_KEY"
	EnvOpenSearchUsername  = "DISPATCH_OPENSEARCH_USERNAME"
	EnvOpenSearchPassword  = "DISPATCH_OPENSEARCH_PASSWORD"
	EnvEmbeddingEndpoint   = "DISPATCH_EMBEDDING_ENDPOINT"
	EnvEmbeddingAPIKey     = "DISPATCH_EMBEDDING_API_KEY"
	EnvEmbeddingModel      = "DISPATCH_EMBEDDING_MODEL"
	EnvThreshold           = "DISPATCH_ROUTER_THRESHOLD"
	EnvRequestsPerMin      = "DISPATCH_ROUTER_REQUESTS_PER_MINUTE"
	EnvSessionTTL          = "DISPATCH_SESSION_TTL"
	EnvArchiveBackend      = "DISPATCH_ARCHIVE_BACKEND"
	EnvArchiveRedisAddr    = "DISPATCH_ARCHIVE_REDIS_ADDR"
	EnvArchivePostgresDSN  = "DISPATCH_ARCHIVE_POSTGRES_DSN"
	EnvArchiveMongoURI     = "DISPATCH_ARCHIVE_MONGODB_URI"
	EnvTelemetryExporter   = "DISPATCH_OTEL_EXPORTER"
	EnvTelemetryOTLPTarget = "DISPATCH_OTEL_ENDPOINT"
)

// ApplyEnv maps DISPATCH_* environment variables onto the configuration.
// Shared settings land in the LLM section and the docs retrieval section,
// which the billing agent inherits during Resolve.
func (c *Config) ApplyEnv() {
	c.LLM.Endpoint = getEnv(EnvAIEndpoint, c.LLM.Endpoint)
	c.LLM.APIKey = getEnv(EnvAIKey, c.LLM.APIKey)
	c.LLM.Model = getEnv(EnvAIModel, c.LLM.Model)
	c.Docs.LLM.APIKey = getEnv(EnvDocsAIKey, c.Docs.LLM.APIKey)
	c.Billing.LLM.APIKey = getEnv(EnvBillingAIKey, c.Billing.LLM.APIKey)

	r := &c.Docs.Retrieval
	r.Endpoint = getEnv(EnvOpenSearchEndpoint, r.Endpoint)
	r.APIKey = getEnv(EnvOpenSearchAPIKey, r.APIKey)
	r.Username = getEnv(EnvOpenSearchUsername, r.Username)
	r.Password = getEnv(EnvOpenSearchPassword, r.Password)
	r.EmbeddingEndpoint = getEnv(EnvEmbeddingEndpoint, r.EmbeddingEndpoint)
	r.EmbeddingAPIKey = getEnv(EnvEmbeddingAPIKey, r.EmbeddingAPIKey)
	r.EmbeddingModel = getEnv(EnvEmbeddingModel, r.EmbeddingModel)

	c.Router.Threshold = getEnvFloat(EnvThreshold, c.Router.Threshold)
	c.Router.RequestsPerMin = getEnvInt(EnvRequestsPerMin, c.Router.RequestsPerMin)
	c.Session.TTL = getEnvDuration(EnvSessionTTL, c.Session.TTL)

	c.Archive.Backend = getEnv(EnvArchiveBackend, c.Archive.Backend)
	c.Archive.RedisAddr = getEnv(EnvArchiveRedisAddr, c.Archive.RedisAddr)
	c.Archive.PostgresDSN = getEnv(EnvArchivePostgresDSN, c.Archive.PostgresDSN)
	c.Archive.MongoURI = getEnv(EnvArchiveMongoURI, c.Archive.MongoURI)

	c.Telemetry.Exporter = getEnv(EnvTelemetryExporter, c.Telemetry.Exporter)
	c.Telemetry.Endpoint = getEnv(EnvTelemetryOTLPTarget, c.Telemetry.Endpoint)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

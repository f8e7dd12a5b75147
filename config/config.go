// Package config loads the dispatcher configuration.
//
// The file format is YAML; JSON files load too because JSON is a YAML
// subset. Field names keep the keys of the existing llm_config.json and
// doc_agent.json files (aiEndpoint, openSearchEndpoint, indexNames, ...).
//
// Incomplete endpoints are never a load error: an agent whose chat or
// retrieval settings are missing abstains from routing instead.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweetpotato0/ai-dispatch/agent/billing"
	"github.com/sweetpotato0/ai-dispatch/agent/docs"
	"github.com/sweetpotato0/ai-dispatch/pkg/telemetry"
)

// Defaults resolved when the corresponding field is not set.
const (
	DefaultMaxSectionsPerIndex = 3
	DefaultMaxCombinedChars    = 4000
	DefaultEmbeddingDimensions = 1536
	DefaultRetrievalTimeout    = 15 * time.Second
	DefaultLLMTimeout          = 30 * time.Second
	DefaultThreshold           = 0.3
	DefaultMemoryCapacity      = 15
	DefaultMaxInputRunes       = 4000
	DefaultSessionCapacity     = 256
	DefaultSessionTTL          = 30 * time.Minute
	DefaultRefundFormURL       = "https://inksupport.example.com/refunds"
	DefaultBillingPolicy       = "Refund requests are reviewed promptly; escalations go to billing@inksoftware.com for executive review."
)

// Archive backends accepted by ArchiveConfig.Backend.
const (
	ArchiveNone     = "none"
	ArchiveMemory   = "memory"
	ArchiveRedis    = "redis"
	ArchivePostgres = "postgres"
	ArchiveMongo    = "mongo"
)

// DefaultBillingCollections are searched by the billing agent when its
// retrieval section names none.
var DefaultBillingCollections = []string{"docs_billing_faq", "docs_billing_policies", "docs_plan_matrix"}

// Config is the whole dispatcher configuration.
type Config struct {
	// LLM holds chat settings shared by both agents; each agent may override fields.
	LLM       LLMConfig          `yaml:"llm" json:"llm"`
	Router    RouterConfig       `yaml:"router" json:"router"`
	Docs      DocAgentConfig     `yaml:"docs" json:"docs"`
	Billing   BillingAgentConfig `yaml:"billing" json:"billing"`
	Session   SessionConfig      `yaml:"session" json:"session"`
	Archive   ArchiveConfig      `yaml:"archive" json:"archive"`
	Telemetry telemetry.Config   `yaml:"telemetry" json:"telemetry"`
}

// LLMConfig describes an OpenAI-compatible chat-completion endpoint.
type LLMConfig struct {
	Endpoint string `yaml:"aiEndpoint" json:"aiEndpoint"`
	APIKey   string `yaml:"aiApiKey" json:"aiApiKey"`
	// Model is left blank when unset: the billing agent treats a blank
	// model as unconfigured while the docs agent lets the provider default it.
	Model       string        `yaml:"aiModel" json:"aiModel"`
	Referer     string        `yaml:"referer" json:"referer"`
	Title       string        `yaml:"title" json:"title"`
	MaxTokens   int64         `yaml:"maxTokens" json:"maxTokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// RetrievalConfig describes the vector index and embedding service an agent searches.
type RetrievalConfig struct {
	Endpoint            string        `yaml:"openSearchEndpoint" json:"openSearchEndpoint"`
	Collections         []string      `yaml:"indexNames" json:"indexNames"`
	Username            string        `yaml:"openSearchUsername" json:"openSearchUsername"`
	Password            string        `yaml:"openSearchPassword" json:"openSearchPassword"`
	APIKey              string        `yaml:"openSearchApiKey" json:"openSearchApiKey"`
	VectorField         string        `yaml:"vectorField" json:"vectorField"`
	MaxSectionsPerIndex int           `yaml:"maxSectionsPerIndex" json:"maxSectionsPerIndex"`
	MaxCombinedChars    int           `yaml:"maxCombinedSectionCharacters" json:"maxCombinedSectionCharacters"`
	EmbeddingEndpoint   string        `yaml:"embeddingEndpoint" json:"embeddingEndpoint"`
	EmbeddingAPIKey     string        `yaml:"embeddingApiKey" json:"embeddingApiKey"`
	EmbeddingModel      string        `yaml:"embeddingModel" json:"embeddingModel"`
	EmbeddingDimensions int           `yaml:"embeddingDimensions" json:"embeddingDimensions"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	CleanHTML           bool          `yaml:"cleanHtml" json:"cleanHtml"`
}

// HasVectorSupport reports whether the vector field and embedding service are set.
func (r RetrievalConfig) HasVectorSupport() bool {
	return strings.TrimSpace(r.VectorField) != "" &&
		strings.TrimSpace(r.EmbeddingEndpoint) != "" &&
		strings.TrimSpace(r.EmbeddingModel) != ""
}

// DocAgentConfig configures the technical documentation agent.
type DocAgentConfig struct {
	Name             string          `yaml:"name" json:"name"`
	ResponseTemplate string          `yaml:"responseTemplate" json:"responseTemplate"`
	Persona          string          `yaml:"persona" json:"persona"`
	LLM              LLMConfig       `yaml:"llm" json:"llm"`
	Retrieval        RetrievalConfig `yaml:"config" json:"config"`
}

// BillingAgentConfig configures the billing agent.
type BillingAgentConfig struct {
	Name             string          `yaml:"name" json:"name"`
	ResponseTemplate string          `yaml:"responseTemplate" json:"responseTemplate"`
	LLM              LLMConfig       `yaml:"llm" json:"llm"`
	Retrieval        RetrievalConfig `yaml:"knowledgeConfig" json:"knowledgeConfig"`
	Plans            []billing.Plan  `yaml:"plans" json:"plans"`
	RefundFormURL    string          `yaml:"refundFormUrl" json:"refundFormUrl"`
	RefundReviewDays int             `yaml:"refundReviewDays" json:"refundReviewDays"`
	RefundPayoutDays int             `yaml:"refundPayoutDays" json:"refundPayoutDays"`
	BillingEmail     string          `yaml:"billingEmail" json:"billingEmail"`
	PolicySummary    string          `yaml:"policySummary" json:"policySummary"`
}

// RouterConfig tunes routing and the request pipeline around it.
type RouterConfig struct {
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// Sequential polls agents one at a time instead of concurrently.
	Sequential     bool   `yaml:"sequential" json:"sequential"`
	MemoryCapacity int    `yaml:"memoryCapacity" json:"memoryCapacity"`
	MaxInputRunes  int    `yaml:"maxInputRunes" json:"maxInputRunes"`
	RequestsPerMin int    `yaml:"requestsPerMinute" json:"requestsPerMinute"`
	Burst          int    `yaml:"burst" json:"burst"`
	// WaitForRate queues turns over the rate instead of apologising.
	WaitForRate bool `yaml:"waitForRate" json:"waitForRate"`
	// TrimOutput strips surrounding whitespace from every reply.
	TrimOutput bool   `yaml:"trimOutput" json:"trimOutput"`
	Refusal    string `yaml:"refusal" json:"refusal"`
}

// SessionConfig bounds the per-session router cache.
type SessionConfig struct {
	Capacity int           `yaml:"capacity" json:"capacity"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
}

// ArchiveConfig selects where accepted turns are persisted.
type ArchiveConfig struct {
	Backend       string        `yaml:"backend" json:"backend"`
	RedisAddr     string        `yaml:"redisAddr" json:"redisAddr"`
	RedisPassword string        `yaml:"redisPassword" json:"redisPassword"`
	RedisDB       int           `yaml:"redisDb" json:"redisDb"`
	RedisPrefix   string        `yaml:"redisPrefix" json:"redisPrefix"`
	MaxTurns      int           `yaml:"maxTurns" json:"maxTurns"`
	TTL           time.Duration `yaml:"ttl" json:"ttl"`
	PostgresDSN   string        `yaml:"postgresDsn" json:"postgresDsn"`
	MongoURI      string        `yaml:"mongoUri" json:"mongoUri"`
	MongoDatabase string        `yaml:"mongoDatabase" json:"mongoDatabase"`
}

// Default returns the stock Inksoftware desk (plans, collections, templates) without any
// endpoints: both agents abstain until endpoints are supplied.
func Default() *Config {
	return &Config{
		Router: RouterConfig{
			Threshold:      DefaultThreshold,
			MemoryCapacity: DefaultMemoryCapacity,
			MaxInputRunes:  DefaultMaxInputRunes,
		},
		Docs: DocAgentConfig{
			Name:             docs.DefaultName,
			ResponseTemplate: docs.DefaultTemplate,
		},
		Billing: BillingAgentConfig{
			Name:             billing.DefaultName,
			ResponseTemplate: billing.DefaultTemplate,
			Plans:            billing.DefaultPlans(),
			RefundFormURL:    DefaultRefundFormURL,
			RefundReviewDays: billing.DefaultRefundReviewDays,
			RefundPayoutDays: billing.DefaultRefundPayoutDays,
			BillingEmail:     billing.DefaultBillingEmail,
			PolicySummary:    DefaultBillingPolicy,
		},
		Session: SessionConfig{
			Capacity: DefaultSessionCapacity,
			TTL:      DefaultSessionTTL,
		},
		Archive: ArchiveConfig{Backend: ArchiveNone},
	}
}

// Load reads a YAML or JSON file over Default, applies environment
// overrides and resolves inherited settings.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve fills agent settings from the shared sections and applies defaults.
// The docs agent inherits the shared LLM section; the billing agent inherits
// it too, and reuses the docs retrieval settings with its own collections.
func (c *Config) Resolve() {
	c.Docs.LLM = c.Docs.LLM.inherit(c.LLM).withDefaults()
	c.Billing.LLM = c.Billing.LLM.inherit(c.LLM).withDefaults()

	c.Docs.Retrieval = c.Docs.Retrieval.withDefaults()
	collections := c.Billing.Retrieval.Collections
	billingRetrieval := c.Billing.Retrieval.inherit(c.Docs.Retrieval)
	billingRetrieval.Collections = collections
	if len(billingRetrieval.Collections) == 0 {
		billingRetrieval.Collections = append([]string(nil), DefaultBillingCollections...)
	}
	c.Billing.Retrieval = billingRetrieval.withDefaults()

	if c.Router.Threshold == 0 {
		c.Router.Threshold = DefaultThreshold
	}
	if c.Router.MemoryCapacity <= 0 {
		c.Router.MemoryCapacity = DefaultMemoryCapacity
	}
	if c.Router.MaxInputRunes <= 0 {
		c.Router.MaxInputRunes = DefaultMaxInputRunes
	}
	if c.Session.Capacity <= 0 {
		c.Session.Capacity = DefaultSessionCapacity
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if strings.TrimSpace(c.Archive.Backend) == "" {
		c.Archive.Backend = ArchiveNone
	}
	c.Archive.Backend = strings.ToLower(strings.TrimSpace(c.Archive.Backend))
}

func (l LLMConfig) inherit(shared LLMConfig) LLMConfig {
	l.Endpoint = pick(l.Endpoint, shared.Endpoint)
	l.APIKey = pick(l.APIKey, shared.APIKey)
	l.Model = pick(l.Model, shared.Model)
	l.Referer = pick(l.Referer, shared.Referer)
	l.Title = pick(l.Title, shared.Title)
	if l.MaxTokens == 0 {
		l.MaxTokens = shared.MaxTokens
	}
	if l.Temperature == 0 {
		l.Temperature = shared.Temperature
	}
	if l.Timeout == 0 {
		l.Timeout = shared.Timeout
	}
	return l
}

func (l LLMConfig) withDefaults() LLMConfig {
	if l.Timeout <= 0 {
		l.Timeout = DefaultLLMTimeout
	}
	return l
}

func (r RetrievalConfig) inherit(base RetrievalConfig) RetrievalConfig {
	r.Endpoint = pick(r.Endpoint, base.Endpoint)
	if len(r.Collections) == 0 {
		r.Collections = append([]string(nil), base.Collections...)
	}
	r.Username = pick(r.Username, base.Username)
	r.Password = pick(r.Password, base.Password)
	r.APIKey = pick(r.APIKey, base.APIKey)
	r.VectorField = pick(r.VectorField, base.VectorField)
	r.EmbeddingEndpoint = pick(r.EmbeddingEndpoint, base.EmbeddingEndpoint)
	r.EmbeddingAPIKey = pick(r.EmbeddingAPIKey, base.EmbeddingAPIKey)
	r.EmbeddingModel = pick(r.EmbeddingModel, base.EmbeddingModel)
	if r.MaxSectionsPerIndex <= 0 {
		r.MaxSectionsPerIndex = base.MaxSectionsPerIndex
	}
	if r.MaxCombinedChars <= 0 {
		r.MaxCombinedChars = base.MaxCombinedChars
	}
	if r.EmbeddingDimensions <= 0 {
		r.EmbeddingDimensions = base.EmbeddingDimensions
	}
	if r.Timeout <= 0 {
		r.Timeout = base.Timeout
	}
	r.CleanHTML = r.CleanHTML || base.CleanHTML
	return r
}

func (r RetrievalConfig) withDefaults() RetrievalConfig {
	if r.MaxSectionsPerIndex <= 0 {
		r.MaxSectionsPerIndex = DefaultMaxSectionsPerIndex
	}
	if r.MaxCombinedChars <= 0 {
		r.MaxCombinedChars = DefaultMaxCombinedChars
	}
	if r.EmbeddingDimensions <= 0 {
		r.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultRetrievalTimeout
	}
	return r
}

func pick(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

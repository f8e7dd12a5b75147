package config

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not blank
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		})
	}
	return v
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Validate checks numeric ranges and the archive backend. Blank endpoints
// are not errors: they make the affected agent abstain.
func (c *Config) Validate() error {
	v := NewValidator()

	v.ValidateFloatRange("router.threshold", c.Router.Threshold, 0, 1)
	v.RequirePositive("router.memoryCapacity", c.Router.MemoryCapacity)
	v.RequirePositive("router.maxInputRunes", c.Router.MaxInputRunes)
	v.ValidateRange("router.requestsPerMinute", c.Router.RequestsPerMin, 0, 1_000_000)
	v.ValidateRange("router.burst", c.Router.Burst, 0, 1_000_000)
	v.RequirePositive("session.capacity", c.Session.Capacity)

	validateLLM(v, "docs.llm", c.Docs.LLM)
	validateLLM(v, "billing.llm", c.Billing.LLM)
	validateRetrieval(v, "docs.config", c.Docs.Retrieval)
	validateRetrieval(v, "billing.knowledgeConfig", c.Billing.Retrieval)

	v.RequirePositive("billing.refundReviewDays", c.Billing.RefundReviewDays)
	v.RequirePositive("billing.refundPayoutDays", c.Billing.RefundPayoutDays)
	for i, plan := range c.Billing.Plans {
		v.RequireNonEmpty(fmt.Sprintf("billing.plans[%d].code", i), plan.Code)
	}

	v.ValidateOneOf("archive.backend", c.Archive.Backend,
		ArchiveNone, ArchiveMemory, ArchiveRedis, ArchivePostgres, ArchiveMongo)
	// Blank archive addresses fall back to the store's REDIS_*, POSTGRES_* and
	// MONGODB_* variables when the archive is opened.
	if c.Archive.Backend == ArchiveRedis {
		v.ValidateRange("archive.redisDb", c.Archive.RedisDB, 0, 15)
	}

	return v.Error()
}

func validateLLM(v *Validator, prefix string, l LLMConfig) {
	v.ValidateFloatRange(prefix+".temperature", l.Temperature, 0, 2)
	if l.MaxTokens < 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   prefix + ".maxTokens",
			Message: fmt.Sprintf("value must not be negative, got %d", l.MaxTokens),
		})
	}
}

func validateRetrieval(v *Validator, prefix string, r RetrievalConfig) {
	v.RequirePositive(prefix+".maxSectionsPerIndex", r.MaxSectionsPerIndex)
	v.RequirePositive(prefix+".maxCombinedSectionCharacters", r.MaxCombinedChars)
	v.ValidateRange(prefix+".embeddingDimensions", r.EmbeddingDimensions, 1, 65535)
}

package limiter

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/middleware"
)

// Config holds the token bucket settings.
type Config struct {
	// RequestsPerMin is the sustained rate; zero or less disables limiting.
	RequestsPerMin int `yaml:"requestsPerMinute" json:"requestsPerMinute"`
	// BurstSize is the bucket capacity; it defaults to 1.
	BurstSize int `yaml:"burstSize" json:"burstSize"`
	// Wait blocks until a token is free instead of rejecting the turn.
	Wait bool `yaml:"wait" json:"wait"`
}

// RateLimiter is a token bucket limiter for routed turns
type RateLimiter struct {
	limiter *rate.Limiter
	wait    bool
}

// NewRateLimiter creates a rate limiting middleware
func NewRateLimiter(cfg Config) *RateLimiter {
	limit := rate.Inf
	if cfg.RequestsPerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMin))
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
		wait:    cfg.Wait,
	}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute takes one token or rejects the turn with ErrRateLimited.
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.wait {
		if err := m.limiter.Wait(ctx.Context()); err != nil {
			return fmt.Errorf("%w: %v", errorskg.ErrRateLimited, err)
		}
		return next(ctx)
	}
	if !m.limiter.Allow() {
		return errorskg.ErrRateLimited
	}
	return next(ctx)
}

// Tokens returns the number of tokens currently available.
func (m *RateLimiter) Tokens() float64 {
	return m.limiter.Tokens()
}

// Package breaker guards an agent.LLMClient with a circuit breaker so an
// unreachable model endpoint fails fast instead of stalling every turn.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/sweetpotato0/ai-dispatch/agent"
	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
)

// Default circuit breaker settings.
const (
	DefaultMaxFailures uint32        = 5
	DefaultTimeout     time.Duration = 30 * time.Second
	DefaultInterval    time.Duration = 60 * time.Second
)

// Config configures the circuit breaker behavior.
type Config struct {
	// Name identifies the breaker in logs.
	Name string `yaml:"name" json:"name"`
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"maxFailures" json:"maxFailures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval" json:"interval"`
	Logger   *slog.Logger  `yaml:"-" json:"-"`
}

// Client wraps an agent.LLMClient with circuit breaker protection.
type Client struct {
	inner   agent.LLMClient
	breaker *gobreaker.CircuitBreaker[*agent.GenerateResponse]
}

// New wraps inner. Zero-valued settings fall back to the defaults.
func New(inner agent.LLMClient, cfg Config) *Client {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("breaker")
	}

	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[*agent.GenerateResponse](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		// An answer without choices still proves the endpoint is reachable.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errorskg.ErrEmptyResponse)
		},
	})

	return &Client{inner: inner, breaker: cb}
}

// Generate implements agent.LLMClient.
func (c *Client) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	resp, err := c.breaker.Execute(func() (*agent.GenerateResponse, error) {
		return c.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s: %w", c.breaker.Name(), errorskg.ErrCircuitOpen)
		}
		return nil, err
	}
	return resp, nil
}

// State reports the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

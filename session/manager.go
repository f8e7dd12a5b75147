package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/router"
)

const (
	// DefaultCapacity bounds how many sessions stay resident.
	DefaultCapacity = 256
	// DefaultTTL expires sessions idle for this long.
	DefaultTTL = 30 * time.Minute
)

// Factory builds a fresh Router graph (agents, memories, caches) for a new session.
type Factory func(sessionID string) (*router.Router, error)

// Option is a function that configures a Manager.
type Option func(*Manager)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithTTL overrides DefaultTTL. A non-positive TTL disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger overrides the logger used by the manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager keeps one Session per session ID. Least recently used and idle
// sessions are evicted and closed; a returning user gets a fresh graph.
type Manager struct {
	mu       sync.Mutex
	factory  Factory
	capacity int
	ttl      time.Duration
	sessions *expirable.LRU[string, *Session]
	logger   *slog.Logger
}

// NewManager creates a new session manager with the given options.
func NewManager(factory Factory, opts ...Option) *Manager {
	m := &Manager{
		factory:  factory,
		capacity: DefaultCapacity,
		ttl:      DefaultTTL,
		logger:   logging.WithComponent("session_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	ttl := m.ttl
	if ttl < 0 {
		ttl = 0
	}
	m.sessions = expirable.NewLRU[string, *Session](m.capacity, m.evicted, ttl)
	return m
}

func (m *Manager) evicted(id string, sess *Session) {
	if sess.GetState() == StateClosed {
		return
	}
	_ = sess.Close()
	m.logger.Info("session evicted", "id", id, "turns", sess.Turns())
}

// GetOrCreate returns the live session for id, building one when absent.
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("session id: %w", errorskg.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions.Get(id); ok {
		m.logger.Debug("session hit cache", "id", id)
		return sess, nil
	}
	if m.factory == nil {
		return nil, fmt.Errorf("session factory: %w", errorskg.ErrNotConfigured)
	}

	r, err := m.factory(id)
	if err != nil {
		m.logger.Error("build session router failed", "id", id, "error", err)
		return nil, fmt.Errorf("build session %s: %w", id, err)
	}
	sess := New(id, r)
	m.sessions.Add(id, sess)
	m.logger.Info("session created", "id", id)
	return sess, nil
}

// Get returns the live session for id without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Get(id)
}

// Route sends text to the session's router, creating the session on first use.
func (m *Manager) Route(ctx context.Context, sessionID, text string) (string, error) {
	sess, err := m.GetOrCreate(sessionID)
	if err != nil {
		return "", err
	}
	return sess.Run(ctx, text)
}

// Delete closes and forgets a session. Deleting an unknown ID is a no-op.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions.Remove(id) {
		m.logger.Warn("session deleted", "id", id)
	}
}

// IDs returns the resident session IDs, oldest first.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Keys()
}

// Len returns how many sessions are resident.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions.Len()
}

// Close closes every resident session.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Purge()
}

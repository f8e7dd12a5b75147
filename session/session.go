package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/router"
)

// State represents the state of a session
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Session is one user's conversation: a private Router graph whose agents
// keep their own memories.
type Session struct {
	id     string
	router *router.Router

	// turn serialises Run: agent caches and memories assume one turn at a time.
	turn sync.Mutex

	mu        sync.Mutex
	state     State
	createdAt time.Time
	updatedAt time.Time
	turns     int
}

// New creates an active session around r.
func New(id string, r *router.Router) *Session {
	now := time.Now()
	return &Session{
		id:        id,
		router:    r,
		state:     StateActive,
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Router returns the session's router.
func (s *Session) Router() *router.Router {
	return s.router
}

// Run routes input through the session's router. Concurrent calls on one
// session queue behind each other.
func (s *Session) Run(ctx context.Context, input string) (string, error) {
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return "", fmt.Errorf("session %s: %w", s.id, errorskg.ErrSessionClosed)
	}
	s.turns++
	s.updatedAt = time.Now()
	s.mu.Unlock()

	return s.router.Route(ctx, input), nil
}

// GetState returns the current session state
func (s *Session) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Turns returns how many inputs the session has handled.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turns
}

// UpdatedAt returns the time of the last turn.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Close marks the session closed. Closing twice is an error.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return fmt.Errorf("session %s: %w", s.id, errorskg.ErrSessionClosed)
	}
	s.state = StateClosed
	s.updatedAt = time.Now()
	return nil
}

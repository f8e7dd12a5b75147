package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ai-dispatch/memory"
)

// InMemoryArchive keeps turns in process memory, grouped by agent.
type InMemoryArchive struct {
	mu    sync.RWMutex
	turns map[string][]*memory.Turn
}

// NewInMemoryArchive creates an empty archive.
func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{
		turns: make(map[string][]*memory.Turn),
	}
}

// Record stores a copy of the turn.
func (s *InMemoryArchive) Record(ctx context.Context, turn *memory.Turn) error {
	if turn == nil {
		return fmt.Errorf("turn cannot be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *turn
	s.turns[turn.Agent] = append(s.turns[turn.Agent], &cp)
	return nil
}

// History returns the newest limit turns for the agent, oldest first.
func (s *InMemoryArchive) History(ctx context.Context, agent string, limit int) ([]*memory.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[agent]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]*memory.Turn, 0, len(all))
	for _, t := range all {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// Count returns the number of stored turns across all agents.
func (s *InMemoryArchive) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, turns := range s.turns {
		n += len(turns)
	}
	return n
}

// Clear removes all turns.
func (s *InMemoryArchive) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = make(map[string][]*memory.Turn)
}

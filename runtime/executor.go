package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/memory"
)

// DefaultSessionID is used when a request names no session.
const DefaultSessionID = "local"

// Request captures the inputs required to execute a turn.
type Request struct {
	SessionID string
	Input     string
}

// TurnResult captures the outcome of a single executor run.
type TurnResult struct {
	SessionID string
	Output    string
	Duration  time.Duration
}

// Executor defines the contract for runtime executors.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*TurnResult, error)
}

var _ Executor = (*Runtime)(nil)

// Execute routes one input through the request's session.
func (rt *Runtime) Execute(ctx context.Context, req *Request) (*TurnResult, error) {
	if req == nil {
		return nil, fmt.Errorf("runtime: request cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	start := time.Now()
	output, err := rt.sessions.Route(ctx, sessionID, req.Input)
	if err != nil {
		rt.logger.Error("executor run failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	duration := time.Since(start)
	rt.logger.Debug("executor run completed", "session_id", sessionID, "duration_ms", duration.Milliseconds())

	return &TurnResult{
		SessionID: sessionID,
		Output:    output,
		Duration:  duration,
	}, nil
}

// History returns archived turns for an agent, oldest first.
func (rt *Runtime) History(ctx context.Context, agentName string, limit int) ([]*memory.Turn, error) {
	if rt.archive == nil {
		return nil, fmt.Errorf("transcript archive: %w", errorskg.ErrNotConfigured)
	}
	return rt.archive.History(ctx, agentName, limit)
}

package router

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-dispatch/agent"
	"github.com/sweetpotato0/ai-dispatch/memory"
	"github.com/sweetpotato0/ai-dispatch/memory/store"
	"github.com/sweetpotato0/ai-dispatch/message"
	"github.com/sweetpotato0/ai-dispatch/middleware"
)

type stubAgent struct {
	agent.Base
	score    float64
	reply    string
	asked    atomic.Int32
	answered atomic.Int32
	// lastHistory captures memory length when Respond runs.
	lastHistory int
}

func newStub(name string, score float64, reply string) *stubAgent {
	return &stubAgent{Base: agent.NewBase(name), score: score, reply: reply}
}

func (s *stubAgent) CanHandle(ctx context.Context, query string) float64 {
	s.asked.Add(1)
	return s.score
}

func (s *stubAgent) Respond(ctx context.Context, query string) string {
	s.answered.Add(1)
	s.lastHistory = s.Memory().Len()
	return s.reply
}

type failingArchive struct{}

func (failingArchive) Record(context.Context, *memory.Turn) error {
	return errors.New("archive down")
}

func (failingArchive) History(context.Context, string, int) ([]*memory.Turn, error) {
	return nil, nil
}

func TestRouteSelectsHighestScore(t *testing.T) {
	tech := newStub("Technical Agent", 0.4, "Restart the service.")
	billing := newStub("Billing Agent", 0.9, "Refunds take 5 days.")
	r := New().Register(tech, billing)

	got := r.Route(context.Background(), "refund please")

	assert.Equal(t, "Billing Agent: Refunds take 5 days.", got)
	assert.EqualValues(t, 1, tech.asked.Load())
	assert.EqualValues(t, 1, billing.asked.Load())
	assert.EqualValues(t, 0, tech.answered.Load())
	assert.EqualValues(t, 1, billing.answered.Load())

	assert.Equal(t, 0, tech.Memory().Len())
	require.Equal(t, 2, billing.Memory().Len())
	msgs := billing.Memory().Messages()
	assert.Equal(t, message.RoleUser, msgs[0].Role)
	assert.Equal(t, "refund please", msgs[0].Content)
	assert.Equal(t, "Billing Agent", msgs[1].Speaker)
	assert.Equal(t, "Refunds take 5 days.", msgs[1].Content)
	// the user turn is in memory before Respond runs
	assert.Equal(t, 1, billing.lastHistory)
}

func TestRouteTieGoesToFirstRegistered(t *testing.T) {
	first := newStub("First", 0.5, "one")
	second := newStub("Second", 0.5, "two")

	for _, opt := range [][]Option{nil, {WithSequentialScoring()}} {
		r := New(opt...).Register(first, second)
		assert.Equal(t, "First: one", r.Route(context.Background(), "q"))
	}
	assert.EqualValues(t, 0, second.answered.Load())
}

func TestRouteRefusesAtOrBelowThreshold(t *testing.T) {
	tests := []struct {
		name  string
		score float64
	}{
		{"zero", 0},
		{"exactly threshold", DefaultThreshold},
		{"negative", -4},
		{"nan", math.NaN()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newStub("Technical Agent", tt.score, "nope")
			archive := store.NewInMemoryArchive()
			r := New(WithArchive(archive, "s1")).Register(a)

			assert.Equal(t, RefusalMessage, r.Route(context.Background(), "weather?"))
			assert.Equal(t, 0, a.Memory().Len())
			assert.EqualValues(t, 0, a.answered.Load())
			assert.Equal(t, 0, archive.Count())
		})
	}
}

func TestRouteWithoutAgentsRefuses(t *testing.T) {
	r := New()
	assert.Equal(t, RefusalMessage, r.Route(context.Background(), "hello"))

	sel := r.Select(context.Background(), "hello")
	assert.Nil(t, sel.Agent)
	assert.False(t, sel.Accepted)
}

func TestRouteClampsScores(t *testing.T) {
	a := newStub("Greedy", 7, "mine")
	b := newStub("Modest", 0.8, "theirs")
	r := New().Register(a, b)

	sel := r.Select(context.Background(), "q")
	assert.Equal(t, []float64{1, 0.8}, sel.Scores)
	assert.Same(t, agent.Agent(a), sel.Agent)
	assert.True(t, sel.Accepted)
	assert.Equal(t, 0, a.Memory().Len())
}

func TestRouteCustomThresholdAndRefusal(t *testing.T) {
	a := newStub("Technical Agent", 0.5, "ok")
	r := New(WithThreshold(0.6), WithRefusal("Helper: no.")).Register(a)

	assert.Equal(t, "Helper: no.", r.Route(context.Background(), "q"))
	assert.Equal(t, 0.6, r.Threshold())
}

func TestRouteRecordsAcceptedTurns(t *testing.T) {
	a := newStub("Billing Agent", 0.8, "Done.")
	archive := store.NewInMemoryArchive()
	r := New(WithArchive(archive, "session-1")).Register(a)

	r.Route(context.Background(), "cancel my plan")

	turns, err := archive.History(context.Background(), "Billing Agent", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "session-1", turns[0].SessionID)
	assert.Equal(t, "cancel my plan", turns[0].Query)
	assert.Equal(t, "Done.", turns[0].Reply)
	assert.Equal(t, 0.8, turns[0].Score)
}

func TestRouteIgnoresArchiveFailure(t *testing.T) {
	a := newStub("Billing Agent", 0.8, "Done.")
	r := New(WithArchive(failingArchive{}, "s")).Register(a)

	assert.Equal(t, "Billing Agent: Done.", r.Route(context.Background(), "q"))
	assert.Equal(t, 2, a.Memory().Len())
}

func TestRouteRunsMiddleware(t *testing.T) {
	a := newStub("Technical Agent", 0.9, "Try again.")
	var seen *middleware.Context
	spy := middleware.Func("spy", func(ctx *middleware.Context, next middleware.Handler) error {
		err := next(ctx)
		seen = ctx
		return err
	})
	r := New(WithMiddleware(spy)).Register(a)

	out := r.Route(context.Background(), "error 500")

	require.NotNil(t, seen)
	assert.Equal(t, out, seen.Output)
	assert.Equal(t, "Technical Agent", seen.Agent)
	assert.True(t, seen.Accepted)
	assert.Equal(t, 0.9, seen.Score)
}

func TestRouteMiddlewareErrorFallsBack(t *testing.T) {
	a := newStub("Technical Agent", 0.9, "unused")
	block := middleware.Func("block", func(ctx *middleware.Context, next middleware.Handler) error {
		return errors.New("blocked")
	})
	r := New(WithMiddleware(block)).Register(a)

	assert.Equal(t, ErrorMessage, r.Route(context.Background(), "q"))
	assert.EqualValues(t, 0, a.asked.Load())

	apologetic := middleware.Func("apology", func(ctx *middleware.Context, next middleware.Handler) error {
		ctx.Output = "Helper: slow down."
		return errors.New("limited")
	})
	r = New(WithMiddleware(apologetic)).Register(a)
	assert.Equal(t, "Helper: slow down.", r.Route(context.Background(), "q"))
}

func TestRegisterSkipsNil(t *testing.T) {
	r := New().Register(nil, newStub("A", 0, ""))
	assert.Len(t, r.Agents(), 1)
}

// Package router picks the agent that answers a query.
//
// Every registered agent scores the query; the highest score wins, with ties
// going to the earliest-registered agent. A winner must score above the
// threshold, otherwise the router refuses without touching any memory.
package router

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ai-dispatch/agent"
	"github.com/sweetpotato0/ai-dispatch/memory"
	"github.com/sweetpotato0/ai-dispatch/middleware"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/pkg/telemetry"
)

const (
	// DefaultThreshold is the score a winner must exceed.
	DefaultThreshold = 0.3

	// RefusalMessage is returned when no agent is confident enough.
	RefusalMessage = "Helper: I'm not sure how to help with that. Try being more precise in your request about technical issues or billing."

	// ErrorMessage is returned when the middleware chain fails and nothing
	// in the chain produced a reply.
	ErrorMessage = "Helper: Sorry, something went wrong while handling your request. Please try again."
)

// Option configures a Router.
type Option func(*Router)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(r *Router) {
		r.threshold = threshold
	}
}

// WithSequentialScoring polls agents one after another instead of concurrently.
func WithSequentialScoring() Option {
	return func(r *Router) {
		r.parallel = false
	}
}

// WithArchive records every accepted turn under sessionID.
func WithArchive(archive memory.Archive, sessionID string) Option {
	return func(r *Router) {
		r.archive = archive
		r.sessionID = sessionID
	}
}

// WithMiddleware appends middlewares around each turn.
func WithMiddleware(middlewares ...middleware.Middleware) Option {
	return func(r *Router) {
		for _, m := range middlewares {
			r.chain.Add(m)
		}
	}
}

// WithRefusal overrides RefusalMessage.
func WithRefusal(text string) Option {
	return func(r *Router) {
		if text != "" {
			r.refusal = text
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Selection is the outcome of scoring one query.
type Selection struct {
	// Agent is the best-scoring agent, nil when no agent is registered.
	Agent agent.Agent
	// Score is Agent's score.
	Score float64
	// Scores holds every agent's score in registration order.
	Scores []float64
	// Accepted reports whether Score exceeds the threshold.
	Accepted bool
}

// Router dispatches queries to registered agents. Route serialises turns so
// memory and retrieval caches see one turn at a time.
type Router struct {
	mu        sync.Mutex
	agents    []agent.Agent
	threshold float64
	parallel  bool
	refusal   string
	archive   memory.Archive
	sessionID string
	chain     *middleware.MiddlewareChain
	logger    *slog.Logger
}

// New creates a router with no agents.
func New(opts ...Option) *Router {
	r := &Router{
		threshold: DefaultThreshold,
		parallel:  true,
		refusal:   RefusalMessage,
		chain:     middleware.NewChain(),
		logger:    logging.WithComponent("router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends agents; registration order breaks score ties.
func (r *Router) Register(agents ...agent.Agent) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range agents {
		if a != nil {
			r.agents = append(r.agents, a)
		}
	}
	return r
}

// Agents returns the registered agents in order.
func (r *Router) Agents() []agent.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]agent.Agent(nil), r.agents...)
}

// Threshold returns the acceptance threshold.
func (r *Router) Threshold() float64 {
	return r.threshold
}

// Route answers query with "<AgentName>: <reply>" or the refusal message.
func (r *Router) Route(ctx context.Context, query string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "router.Route")
	mctx := middleware.NewContext(ctx, query)
	err := r.chain.Execute(mctx, r.handle)
	span.SetAttributes(
		attribute.String("router.agent", mctx.Agent),
		attribute.Float64("router.score", mctx.Score),
		attribute.Bool("router.accepted", mctx.Accepted),
	)
	telemetry.End(span, err)

	if err != nil {
		r.logger.Error("turn failed", "error", err)
		if mctx.Output == "" {
			return ErrorMessage
		}
	}
	return mctx.Output
}

// Select scores query against every agent without side effects on memory.
func (r *Router) Select(ctx context.Context, query string) Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selectAgent(ctx, query)
}

func (r *Router) handle(mctx *middleware.Context) error {
	ctx := mctx.Context()
	query := mctx.Input

	sel := r.selectAgent(ctx, query)
	mctx.Score = sel.Score
	if !sel.Accepted {
		r.logger.Info("no agent accepted query", "best_score", sel.Score, "threshold", r.threshold)
		mctx.Output = r.refusal
		return nil
	}

	winner := sel.Agent
	mctx.Agent = winner.Name()
	mctx.Accepted = true
	r.logger.Info("agent selected", "agent", winner.Name(), "score", sel.Score)

	winner.Memory().AppendUser(query)
	reply := winner.Respond(ctx, query)
	winner.Memory().AppendAgent(winner.Name(), reply)

	mctx.Output = winner.Name() + ": " + reply
	r.record(ctx, winner.Name(), query, reply, sel.Score)
	return nil
}

func (r *Router) selectAgent(ctx context.Context, query string) Selection {
	sel := Selection{Scores: r.score(ctx, query)}
	if len(r.agents) == 0 {
		return sel
	}

	best := 0
	for i := 1; i < len(sel.Scores); i++ {
		if sel.Scores[i] > sel.Scores[best] {
			best = i
		}
	}
	sel.Agent = r.agents[best]
	sel.Score = sel.Scores[best]
	sel.Accepted = sel.Score > r.threshold
	return sel
}

// score polls CanHandle on every agent; scores are clamped to [0, 1].
func (r *Router) score(ctx context.Context, query string) []float64 {
	scores := make([]float64, len(r.agents))
	poll := func(i int) {
		a := r.agents[i]
		sctx, span := telemetry.Tracer().Start(ctx, "agent.CanHandle")
		scores[i] = agent.ClampScore(a.CanHandle(sctx, query))
		span.SetAttributes(
			attribute.String("agent.name", a.Name()),
			attribute.Float64("agent.score", scores[i]),
		)
		telemetry.End(span, nil)
		r.logger.Debug("agent scored", "agent", a.Name(), "score", scores[i])
	}

	if !r.parallel || len(r.agents) < 2 {
		for i := range r.agents {
			poll(i)
		}
		return scores
	}

	var g errgroup.Group
	for i := range r.agents {
		g.Go(func() error {
			poll(i)
			return nil
		})
	}
	_ = g.Wait()
	return scores
}

func (r *Router) record(ctx context.Context, agentName, query, reply string, score float64) {
	if r.archive == nil {
		return
	}
	turn := memory.NewTurn(r.sessionID, agentName, query, reply, score)
	if err := r.archive.Record(ctx, turn); err != nil {
		r.logger.Warn("archive turn", "agent", agentName, "error", err)
	}
}

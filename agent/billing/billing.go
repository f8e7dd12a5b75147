// Package billing implements the billing agent. It gates on retrieval
// confidence like the documentation agent but answers by letting the model
// pick exactly one of three deterministic tools.
package billing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/agent"
	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/message"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/rag/retriever"
	"github.com/sweetpotato0/ai-dispatch/tool"
)

const (
	DefaultName     = "Billing Agent"
	DefaultTemplate = "I can help with billing questions. You asked: " + agent.QuestionPlaceholder

	DefaultBillingEmail     = "billing@inksoftware.com"
	DefaultPolicySummary    = "Refunds are reviewed within 2-3 business days."
	DefaultRefundReviewDays = 2
	DefaultRefundPayoutDays = 5

	// ServiceErrorMessage is returned when the model endpoint could not be reached.
	ServiceErrorMessage = "I hit an issue while checking billing systems. Could you try again shortly?"
)

// Config holds the billing desk settings.
type Config struct {
	Name             string
	ResponseTemplate string
	Plans            []Plan
	RefundFormURL    string
	RefundReviewDays int
	RefundPayoutDays int
	BillingEmail     string
	PolicySummary    string
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultName
	}
	if c.ResponseTemplate == "" {
		c.ResponseTemplate = DefaultTemplate
	}
	if c.BillingEmail == "" {
		c.BillingEmail = DefaultBillingEmail
	}
	if c.PolicySummary == "" {
		c.PolicySummary = DefaultPolicySummary
	}
	if c.RefundReviewDays <= 0 {
		c.RefundReviewDays = DefaultRefundReviewDays
	}
	if c.RefundPayoutDays <= 0 {
		c.RefundPayoutDays = DefaultRefundPayoutDays
	}
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCaseIDs replaces the refund case identifier generator.
func WithCaseIDs(fn func() string) Option {
	return func(a *Agent) {
		if fn != nil {
			a.caseID = fn
		}
	}
}

// WithBaseOptions forwards options to the embedded agent.Base.
func WithBaseOptions(opts ...agent.Option) Option {
	return func(a *Agent) {
		a.baseOpts = append(a.baseOpts, opts...)
	}
}

// Agent is the tool-orchestrating billing agent.
type Agent struct {
	agent.Base

	cfg      Config
	catalog  *Catalog
	source   retriever.ReadySource
	cache    *retriever.Cache
	llm      agent.LLMClient
	caseID   func() string
	logger   *slog.Logger
	baseOpts []agent.Option
}

var _ agent.Agent = (*Agent)(nil)

// New creates the agent. Without llm the agent answers with the filled
// template; without a ready source it scores 0.
func New(cfg Config, source retriever.ReadySource, llm agent.LLMClient, opts ...Option) *Agent {
	cfg.applyDefaults()
	a := &Agent{
		cfg:     cfg,
		catalog: NewCatalog(cfg.Plans),
		source:  source,
		llm:     llm,
		caseID:  newCaseID,
		logger:  logging.WithComponent("agent.billing"),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Base = agent.NewBase(cfg.Name, a.baseOpts...)
	if source != nil {
		a.cache = retriever.NewCache(source)
	}
	return a
}

// Catalog exposes the plan index.
func (a *Agent) Catalog() *Catalog {
	return a.catalog
}

// Configured reports whether a model is attached.
func (a *Agent) Configured() bool {
	return a.llm != nil
}

func (a *Agent) knowledgeReady() bool {
	return a.source != nil && a.source.Ready()
}

// CanHandle returns the billing knowledge confidence for query and primes the cache.
func (a *Agent) CanHandle(ctx context.Context, query string) float64 {
	if strings.TrimSpace(query) == "" || !a.knowledgeReady() {
		return 0
	}
	return agent.ClampScore(a.cache.Refresh(ctx, query).Confidence)
}

// Respond asks the model for one tool decision and executes it.
func (a *Agent) Respond(ctx context.Context, query string) string {
	if !a.Configured() {
		return agent.FillTemplate(a.cfg.ResponseTemplate, query)
	}

	knowledge := retriever.Empty(query)
	if a.knowledgeReady() {
		knowledge = a.cache.Lookup(ctx, query)
	}

	registry := a.tools(query, knowledge)
	req, err := a.buildRequest(query, knowledge, registry.ToJSONSchemas())
	if err != nil {
		a.logger.Error("build decision request", "error", err)
		return a.fallback(query, knowledge)
	}

	resp, err := a.llm.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, errorskg.ErrUpstreamStatus) || errors.Is(err, errorskg.ErrEmptyResponse) {
			a.logger.Warn("model returned no decision", "agent", a.Name(), "error", err)
			return a.fallback(query, knowledge)
		}
		a.logger.Warn("model request failed", "agent", a.Name(), "error", err)
		return ServiceErrorMessage
	}

	var reply *message.Message
	if resp != nil {
		reply = resp.Message
	}
	decision, ok := decide(reply)
	if !ok {
		a.logger.Debug("no tool decision", "agent", a.Name(), "error", errorskg.ErrNoDecision)
		return a.fallback(query, knowledge)
	}

	out := a.execute(ctx, decision, registry)
	if strings.TrimSpace(out) == "" {
		return a.fallback(query, knowledge)
	}
	return out
}

func (a *Agent) execute(ctx context.Context, d Decision, registry *tool.Registry) string {
	if d.Tool == DirectResponse {
		return d.Content
	}
	out, err := registry.Execute(ctx, d.Tool, d.Args)
	if err != nil {
		a.logger.Warn("tool execution failed", "tool", d.Tool, "error", err)
		return ""
	}
	a.logger.Info("tool executed", "agent", a.Name(), "tool", d.Tool)
	return out
}

// buildRequest assembles system prompt, knowledge, replayed memory and the query.
func (a *Agent) buildRequest(query string, knowledge retriever.Result, tools []map[string]any) (*agent.GenerateRequest, error) {
	system, err := systemPrompt.Render(map[string]any{
		"Plans":  a.catalog.Plans(),
		"Policy": a.cfg.PolicySummary,
	})
	if err != nil {
		return nil, err
	}
	messages := []*message.Message{message.NewMessage(message.RoleSystem, system)}

	if !knowledge.IsEmpty() {
		notes, err := knowledgePrompt.Render(knowledge.Snippets)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message.NewMessage(message.RoleSystem, notes))
	}

	history := a.Replay()
	// The router logs the query before responding; it is sent once, last.
	if n := len(history); n > 0 && history[n-1].Role == message.RoleUser && history[n-1].Content == query {
		history = history[:n-1]
	}
	messages = append(messages, history...)
	messages = append(messages, message.NewMessage(message.RoleUser, query))

	return &agent.GenerateRequest{Messages: messages, Tools: tools}, nil
}

// fallback echoes the template with a knowledge pointer and the contact address.
func (a *Agent) fallback(query string, knowledge retriever.Result) string {
	var b strings.Builder
	b.WriteString(agent.FillTemplate(a.cfg.ResponseTemplate, query))
	if !knowledge.IsEmpty() {
		b.WriteString("\nReference notes: ")
		b.WriteString(knowledge.Summary())
	}
	b.WriteString("\nIf you need urgent help, contact ")
	b.WriteString(a.cfg.BillingEmail)
	b.WriteString(".")
	return b.String()
}

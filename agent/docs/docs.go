// Package docs implements the technical documentation agent: it scores a
// query by retrieval confidence and answers from the retrieved excerpts.
package docs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/agent"
	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/message"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/prompt"
	"github.com/sweetpotato0/ai-dispatch/rag/retriever"
)

const (
	DefaultName     = "Technical Agent"
	DefaultTemplate = "I can help with technical questions. You asked: " + agent.QuestionPlaceholder

	// NoMatchMessage is returned when retrieval found nothing for the query.
	NoMatchMessage = "I reviewed our documentation but could not find enough information. Could you clarify the issue or share more detail?"
	// ServiceErrorMessage is returned when the model endpoint could not be reached.
	ServiceErrorMessage = "I ran into a problem while checking the technical notes. Please try again in a moment."

	// MaxExcerpts caps the snippets embedded in the system prompt.
	MaxExcerpts = 3
)

const defaultPersona = "You are Inksoftware's technical support agent. Answer using the documentation excerpts. " +
	"If the answer is missing, explain what else is needed. Do not make up answers.\n"

var systemPrompt = prompt.MustTemplate("docs.system",
	"{{.Persona}}{{if .Snippets}}\n\nDocumentation excerpts:\n"+
		"{{range .Snippets}}- Source: {{.Source}}\n{{.Content}}\n{{end}}{{end}}")

// Config holds the agent's static settings.
type Config struct {
	Name             string
	ResponseTemplate string
	// Persona opens the system prompt.
	Persona string
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

// WithBaseOptions forwards options to the embedded agent.Base.
func WithBaseOptions(opts ...agent.Option) Option {
	return func(a *Agent) {
		a.baseOpts = append(a.baseOpts, opts...)
	}
}

// Agent is the retrieval-only documentation agent.
type Agent struct {
	agent.Base

	template string
	persona  string
	source   retriever.ReadySource
	cache    *retriever.Cache
	llm      agent.LLMClient
	logger   *slog.Logger
	baseOpts []agent.Option
}

var _ agent.Agent = (*Agent)(nil)

// New creates the agent. A nil source or llm leaves the agent unconfigured:
// it then scores 0 and answers with the filled template.
func New(cfg Config, source retriever.ReadySource, llm agent.LLMClient, opts ...Option) *Agent {
	a := &Agent{
		template: cfg.ResponseTemplate,
		persona:  cfg.Persona,
		source:   source,
		llm:      llm,
		logger:   logging.WithComponent("agent.docs"),
	}
	for _, opt := range opts {
		opt(a)
	}

	name := cfg.Name
	if strings.TrimSpace(name) == "" {
		name = DefaultName
	}
	if a.template == "" {
		a.template = DefaultTemplate
	}
	if a.persona == "" {
		a.persona = defaultPersona
	}
	a.Base = agent.NewBase(name, a.baseOpts...)
	if source != nil {
		a.cache = retriever.NewCache(source)
	}
	return a
}

// Configured reports whether retrieval is ready and a model is attached.
func (a *Agent) Configured() bool {
	return a.source != nil && a.llm != nil && a.source.Ready()
}

// CanHandle returns the retrieval confidence for query and primes the cache.
func (a *Agent) CanHandle(ctx context.Context, query string) float64 {
	if !a.Configured() || strings.TrimSpace(query) == "" {
		return 0
	}
	return agent.ClampScore(a.cache.Refresh(ctx, query).Confidence)
}

// Respond answers from the cached retrieval when query matches the last scored query.
func (a *Agent) Respond(ctx context.Context, query string) string {
	if !a.Configured() {
		return agent.FillTemplate(a.template, query)
	}

	result := a.cache.Lookup(ctx, query)
	if result.IsEmpty() {
		return NoMatchMessage
	}

	answer, err := a.ask(ctx, query, result)
	switch {
	case err == nil:
		return answer
	case errors.Is(err, errorskg.ErrUpstreamStatus), errors.Is(err, errorskg.ErrEmptyResponse):
		a.logger.Warn("model returned no usable answer", "agent", a.Name(), "error", err)
		return a.fallback(result, query)
	default:
		a.logger.Warn("model request failed", "agent", a.Name(), "error", err)
		return ServiceErrorMessage
	}
}

func (a *Agent) ask(ctx context.Context, query string, result retriever.Result) (string, error) {
	system, err := systemPrompt.Render(map[string]any{
		"Persona":  a.persona,
		"Snippets": result.Top(MaxExcerpts),
	})
	if err != nil {
		return "", err
	}

	resp, err := a.llm.Generate(ctx, &agent.GenerateRequest{
		Messages: []*message.Message{
			message.NewMessage(message.RoleSystem, system),
			message.NewMessage(message.RoleUser, query),
		},
	})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil || strings.TrimSpace(resp.Message.Content) == "" {
		return "", errorskg.ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// fallback quotes the highest-ranked snippet.
func (a *Agent) fallback(result retriever.Result, query string) string {
	first, ok := result.First()
	if !ok {
		return agent.FillTemplate(a.template, query)
	}
	return "Based on " + first.Source() + ", here is what I can share: \n" + first.Content
}

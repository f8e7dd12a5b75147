// Package runtime assembles the dispatcher from configuration: retrievers,
// chat clients, agents, the middleware pipeline, the transcript archive and
// the per-session router cache.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/agent"
	"github.com/sweetpotato0/ai-dispatch/agent/billing"
	"github.com/sweetpotato0/ai-dispatch/agent/docs"
	"github.com/sweetpotato0/ai-dispatch/config"
	embedopenai "github.com/sweetpotato0/ai-dispatch/contrib/embedder/openai"
	"github.com/sweetpotato0/ai-dispatch/contrib/provider/breaker"
	"github.com/sweetpotato0/ai-dispatch/contrib/provider/openai"
	"github.com/sweetpotato0/ai-dispatch/contrib/vector/opensearch"
	"github.com/sweetpotato0/ai-dispatch/memory"
	"github.com/sweetpotato0/ai-dispatch/middleware"
	"github.com/sweetpotato0/ai-dispatch/middleware/errorhandler"
	turnlogger "github.com/sweetpotato0/ai-dispatch/middleware/logger"
	"github.com/sweetpotato0/ai-dispatch/middleware/limiter"
	"github.com/sweetpotato0/ai-dispatch/middleware/validator"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/rag/embedder"
	"github.com/sweetpotato0/ai-dispatch/rag/preprocess"
	"github.com/sweetpotato0/ai-dispatch/rag/retriever"
	"github.com/sweetpotato0/ai-dispatch/router"
	"github.com/sweetpotato0/ai-dispatch/session"
	"github.com/sweetpotato0/ai-dispatch/vector"
)

// Option customizes Build.
type Option func(*Runtime)

// WithSearcher replaces the OpenSearch client for both agents, for example
// with an in-memory store.
func WithSearcher(s vector.Searcher) Option {
	return func(rt *Runtime) {
		rt.searcher = s
	}
}

// WithEmbedder replaces the configured embedding clients.
func WithEmbedder(e embedder.Embedder) Option {
	return func(rt *Runtime) {
		rt.embedder = e
	}
}

// WithArchive replaces the configured archive backend.
func WithArchive(a memory.Archive) Option {
	return func(rt *Runtime) {
		rt.archive = a
	}
}

// WithHTTPClient sets the transport used by every outbound client.
func WithHTTPClient(c *http.Client) Option {
	return func(rt *Runtime) {
		rt.httpClient = c
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// Runtime owns everything shared between sessions. Agents, their memories
// and retrieval caches are built per session by NewRouter.
type Runtime struct {
	cfg        *config.Config
	searcher   vector.Searcher
	embedder   embedder.Embedder
	httpClient *http.Client

	docsSource    *retriever.Retriever
	billingSource *retriever.Retriever
	docsLLM       agent.LLMClient
	billingLLM    agent.LLMClient

	middlewares []middleware.Middleware
	archive     memory.Archive
	closeFuncs  []func(context.Context) error
	sessions    *session.Manager
	logger      *slog.Logger
}

// Build wires a runtime from cfg. cfg should already be resolved, as
// config.Load does; Build resolves a copy otherwise.
func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	resolved := *cfg
	resolved.Resolve()

	rt := &Runtime{
		cfg:    &resolved,
		logger: logging.WithComponent("runtime"),
	}
	for _, opt := range opts {
		opt(rt)
	}

	rt.docsSource = rt.buildRetriever("docs", resolved.Docs.Retrieval)
	rt.billingSource = rt.buildRetriever("billing", resolved.Billing.Retrieval)
	rt.docsLLM = rt.buildLLM("docs", resolved.Docs.LLM, docsLLMReady(resolved.Docs.LLM))
	rt.billingLLM = rt.buildLLM("billing", resolved.Billing.LLM, billingLLMReady(resolved.Billing.LLM))
	rt.middlewares = rt.buildMiddlewares()

	if rt.archive == nil {
		archive, closeFn, err := openArchive(ctx, resolved.Archive)
		if err != nil {
			return nil, err
		}
		rt.archive = archive
		if closeFn != nil {
			rt.closeFuncs = append(rt.closeFuncs, closeFn)
		}
	}

	rt.sessions = session.NewManager(rt.NewRouter,
		session.WithCapacity(resolved.Session.Capacity),
		session.WithTTL(resolved.Session.TTL),
	)

	rt.logger.Info("runtime ready",
		"docs_llm", rt.docsLLM != nil,
		"billing_llm", rt.billingLLM != nil,
		"docs_retrieval", rt.docsSource.Ready(),
		"billing_retrieval", rt.billingSource.Ready(),
		"archive", resolved.Archive.Backend,
	)
	return rt, nil
}

// docsLLMReady mirrors the documentation agent's gate: an endpoint is enough.
func docsLLMReady(c config.LLMConfig) bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// billingLLMReady requires endpoint, key and model.
func billingLLMReady(c config.LLMConfig) bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.APIKey) != "" &&
		strings.TrimSpace(c.Model) != ""
}

func (rt *Runtime) buildRetriever(name string, rc config.RetrievalConfig) *retriever.Retriever {
	searcher := rt.searcher
	if searcher == nil {
		searcher = opensearch.New(opensearch.Config{
			Endpoint:   rc.Endpoint,
			Username:   rc.Username,
			Password:   rc.Password,
			APIKey:     rc.APIKey,
			Timeout:    rc.Timeout,
			HTTPClient: rt.httpClient,
			Logger:     logging.WithComponent("opensearch").With("agent", name),
		})
	}

	emb := rt.embedder
	if emb == nil {
		emb = embedopenai.New(embedopenai.Config{
			Endpoint:   rc.EmbeddingEndpoint,
			APIKey:     rc.EmbeddingAPIKey,
			Model:      rc.EmbeddingModel,
			Dimensions: rc.EmbeddingDimensions,
			Timeout:    rc.Timeout,
			HTTPClient: rt.httpClient,
		})
	}

	endpoint := rc.Endpoint
	if rt.searcher != nil && strings.TrimSpace(endpoint) == "" {
		endpoint = "memory"
	}

	opts := []retriever.Option{retriever.WithLogger(logging.WithComponent("retriever").With("agent", name))}
	if rc.CleanHTML {
		opts = append(opts, retriever.WithContentFilter(preprocess.Clean))
	}
	return retriever.New(searcher, emb, retriever.Config{
		Endpoint:            endpoint,
		Collections:         rc.Collections,
		VectorField:         rc.VectorField,
		EmbeddingEndpoint:   rc.EmbeddingEndpoint,
		EmbeddingModel:      rc.EmbeddingModel,
		MaxSectionsPerIndex: rc.MaxSectionsPerIndex,
		MaxCombinedChars:    rc.MaxCombinedChars,
	}, opts...)
}

// buildLLM returns nil when the endpoint settings are incomplete so the
// agent reports itself unconfigured and abstains.
func (rt *Runtime) buildLLM(name string, lc config.LLMConfig, ready bool) agent.LLMClient {
	if !ready {
		rt.logger.Warn("chat endpoint not configured", "agent", name)
		return nil
	}
	provider := openai.New(openai.Config{
		Endpoint:    lc.Endpoint,
		APIKey:      lc.APIKey,
		Model:       lc.Model,
		Referer:     lc.Referer,
		Title:       lc.Title,
		MaxTokens:   lc.MaxTokens,
		Temperature: lc.Temperature,
		Timeout:     lc.Timeout,
		HTTPClient:  rt.httpClient,
	})
	return breaker.New(provider, breaker.Config{Name: name + "-chat"})
}

func (rt *Runtime) buildMiddlewares() []middleware.Middleware {
	rc := rt.cfg.Router
	chain := []middleware.Middleware{
		errorhandler.Apology(logging.WithComponent("middleware.errorhandler")),
		turnlogger.New(logging.WithComponent("middleware.logger")),
		validator.NewInputValidator(validator.MaxLength(rc.MaxInputRunes)),
	}
	if rc.RequestsPerMin > 0 {
		chain = append(chain, limiter.NewRateLimiter(limiter.Config{
			RequestsPerMin: rc.RequestsPerMin,
			BurstSize:      rc.Burst,
			Wait:           rc.WaitForRate,
		}))
	}
	if rc.TrimOutput {
		chain = append(chain, validator.TrimOutput())
	}
	return chain
}

// NewRouter builds a fresh router graph for one session: new agents with
// empty memories and caches over the shared retrievers and chat clients.
func (rt *Runtime) NewRouter(sessionID string) (*router.Router, error) {
	capacity := agent.WithCapacity(rt.cfg.Router.MemoryCapacity)

	docsAgent := docs.New(docs.Config{
		Name:             rt.cfg.Docs.Name,
		ResponseTemplate: rt.cfg.Docs.ResponseTemplate,
		Persona:          rt.cfg.Docs.Persona,
	}, rt.docsSource, rt.docsLLM, docs.WithBaseOptions(capacity))

	b := rt.cfg.Billing
	billingAgent := billing.New(billing.Config{
		Name:             b.Name,
		ResponseTemplate: b.ResponseTemplate,
		Plans:            b.Plans,
		RefundFormURL:    b.RefundFormURL,
		RefundReviewDays: b.RefundReviewDays,
		RefundPayoutDays: b.RefundPayoutDays,
		BillingEmail:     b.BillingEmail,
		PolicySummary:    b.PolicySummary,
	}, rt.billingSource, rt.billingLLM, billing.WithBaseOptions(capacity))

	opts := []router.Option{
		router.WithThreshold(rt.cfg.Router.Threshold),
		router.WithMiddleware(rt.middlewares...),
		router.WithRefusal(rt.cfg.Router.Refusal),
		router.WithLogger(logging.WithComponent("router").With("session", sessionID)),
	}
	if rt.cfg.Router.Sequential {
		opts = append(opts, router.WithSequentialScoring())
	}
	if rt.archive != nil {
		opts = append(opts, router.WithArchive(rt.archive, sessionID))
	}
	return router.New(opts...).Register(docsAgent, billingAgent), nil
}

// Config returns the resolved configuration.
func (rt *Runtime) Config() *config.Config {
	return rt.cfg
}

// Sessions returns the per-session router cache.
func (rt *Runtime) Sessions() *session.Manager {
	return rt.sessions
}

// Archive returns the transcript archive, nil when archiving is off.
func (rt *Runtime) Archive() memory.Archive {
	return rt.archive
}

// Plans returns the billing catalogue.
func (rt *Runtime) Plans() *billing.Catalog {
	return billing.NewCatalog(rt.cfg.Billing.Plans)
}

// Close drops every session and releases archive connections.
func (rt *Runtime) Close(ctx context.Context) error {
	rt.sessions.Close()
	var errs []error
	for _, fn := range rt.closeFuncs {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close runtime: %w", err)
	}
	return nil
}

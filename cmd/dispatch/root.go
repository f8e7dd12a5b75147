package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-dispatch/config"
	"github.com/sweetpotato0/ai-dispatch/contrib/vector/inmemory"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/pkg/telemetry"
	"github.com/sweetpotato0/ai-dispatch/rag/document"
	"github.com/sweetpotato0/ai-dispatch/rag/indexer"
	"github.com/sweetpotato0/ai-dispatch/runtime"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	sessionID  string
	docsDir    string
	logLevel   string
	logFormat  string
	chunker    string
	encoding   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "dispatch",
		Short:         "Route support questions to the technical or billing agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.SetLogger(logging.New(logging.Options{
				Format: flags.logFormat,
				Level:  flags.logLevel,
			}))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a YAML or JSON config file")
	pf.StringVar(&flags.sessionID, "session", runtime.DefaultSessionID, "Conversation session ID")
	pf.StringVar(&flags.docsDir, "docs", "", "Serve retrieval from a local docs tree held in memory instead of OpenSearch")
	pf.StringVar(&flags.chunker, "chunker", chunkerNone, "How local docs are split before embedding: none, simple, markdown or token")
	pf.StringVar(&flags.encoding, "encoding", "", "Tiktoken model or encoding for --chunker token")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(
		newChatCmd(flags),
		newAskCmd(flags),
		newPlansCmd(flags),
		newHistoryCmd(flags),
		newIndexCmd(flags),
	)
	return root
}

// loadConfig reads --config when given, otherwise starts from defaults.
// Environment overrides apply either way.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	if strings.TrimSpace(flags.configPath) != "" {
		return config.Load(flags.configPath)
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// keepSessionsAlive disables idle expiry, so a REPL keeps its agent memories
// for as long as the process runs.
func keepSessionsAlive(cfg *config.Config) {
	cfg.Session.TTL = -1
}

// app bundles what a chatting subcommand needs and releases it on close.
type app struct {
	rt       *runtime.Runtime
	shutdown func(context.Context) error
}

func (a *app) Close(ctx context.Context) error {
	err := a.rt.Close(ctx)
	if serr := a.shutdown(ctx); serr != nil && err == nil {
		err = serr
	}
	return err
}

func openApp(ctx context.Context, flags *globalFlags, tune ...func(*config.Config)) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	for _, fn := range tune {
		fn(cfg)
	}

	tc := cfg.Telemetry
	tc.Logger = logging.WithComponent("telemetry")
	shutdown, err := telemetry.Init(ctx, tc)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var opts []runtime.Option
	if strings.TrimSpace(flags.docsDir) != "" {
		store, err := loadLocalDocs(ctx, cfg, flags)
		if err != nil {
			_ = shutdown(ctx)
			return nil, err
		}
		opts = append(opts, runtime.WithSearcher(store))
	}

	rt, err := runtime.Build(ctx, cfg, opts...)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	return &app{rt: rt, shutdown: shutdown}, nil
}

// loadLocalDocs indexes a docs tree into an in-memory store. Collections the
// config does not assign go to the documentation agent.
func loadLocalDocs(ctx context.Context, cfg *config.Config, flags *globalFlags) (*inmemory.Store, error) {
	dir := flags.docsDir
	chunker, err := newChunker(flags.chunker, flags.encoding)
	if err != nil {
		return nil, err
	}
	docs, err := document.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	collections, _ := document.Collections(docs)

	rc := indexRetrieval(cfg.Docs.Retrieval, cfg.LLM)
	cfg.Docs.Retrieval.VectorField = rc.VectorField
	cfg.Docs.Retrieval.EmbeddingEndpoint = rc.EmbeddingEndpoint
	cfg.Docs.Retrieval.EmbeddingAPIKey = rc.EmbeddingAPIKey
	cfg.Docs.Retrieval.EmbeddingModel = rc.EmbeddingModel
	if len(cfg.Docs.Retrieval.Collections) == 0 {
		for _, c := range collections {
			if !slices.Contains(cfg.Billing.Retrieval.Collections, c) {
				cfg.Docs.Retrieval.Collections = append(cfg.Docs.Retrieval.Collections, c)
			}
		}
	}
	// Billing inherits the embedding settings chosen above.
	cfg.Billing.Retrieval.VectorField = pickString(cfg.Billing.Retrieval.VectorField, rc.VectorField)
	cfg.Billing.Retrieval.EmbeddingEndpoint = pickString(cfg.Billing.Retrieval.EmbeddingEndpoint, rc.EmbeddingEndpoint)
	cfg.Billing.Retrieval.EmbeddingAPIKey = pickString(cfg.Billing.Retrieval.EmbeddingAPIKey, rc.EmbeddingAPIKey)
	cfg.Billing.Retrieval.EmbeddingModel = pickString(cfg.Billing.Retrieval.EmbeddingModel, rc.EmbeddingModel)

	store := inmemory.New()
	ix := indexer.New(store, newEmbedder(rc), indexer.Config{
		VectorField: rc.VectorField,
		Dimensions:  rc.EmbeddingDimensions,
	}, indexer.WithChunker(chunker))

	report, err := ix.Index(ctx, docs)
	if err != nil {
		return nil, err
	}
	logging.WithComponent("cli").Info("local docs loaded",
		"dir", dir, "documents", report.Documents, "chunks", report.Chunks, "collections", report.Collections)
	return store, nil
}

func pickString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-dispatch/config"
	"github.com/sweetpotato0/ai-dispatch/contrib/chunking/markdown"
	"github.com/sweetpotato0/ai-dispatch/contrib/chunking/token"
	embedopenai "github.com/sweetpotato0/ai-dispatch/contrib/embedder/openai"
	"github.com/sweetpotato0/ai-dispatch/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/ai-dispatch/contrib/vector/opensearch"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/rag/chunking"
	"github.com/sweetpotato0/ai-dispatch/rag/document"
	"github.com/sweetpotato0/ai-dispatch/rag/indexer"
)

// Chunker names accepted by --chunker.
const (
	chunkerNone     = "none"
	chunkerSimple   = "simple"
	chunkerMarkdown = "markdown"
	chunkerToken    = "token"
)

// Indexing defaults used when the config leaves a setting blank.
const (
	defaultIndexEndpoint  = "http://localhost:9200"
	defaultVectorField    = "embedding"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultDocsRoot       = "docs/technical"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "index [docs-root]",
		Short: "Embed a docs tree and write it into OpenSearch, one collection per directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := defaultDocsRoot
			if len(args) == 1 {
				root = args[0]
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			chunker, err := newChunker(flags.chunker, flags.encoding)
			if err != nil {
				return err
			}

			docs, err := document.LoadDir(root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(docs) == 0 {
				fmt.Fprintf(out, "No documents found under %s\n", root)
				return nil
			}

			rc := indexRetrieval(cfg.Docs.Retrieval, cfg.LLM)
			store := opensearch.New(opensearch.Config{
				Endpoint: rc.Endpoint,
				Username: rc.Username,
				Password: rc.Password,
				APIKey:   rc.APIKey,
				Timeout:  rc.Timeout,
				Logger:   logging.WithComponent("opensearch"),
			})
			ix := indexer.New(store, newEmbedder(rc), indexer.Config{
				VectorField: rc.VectorField,
				Dimensions:  rc.EmbeddingDimensions,
				DryRun:      dryRun,
			}, indexer.WithChunker(chunker))

			report, err := ix.Index(cmd.Context(), docs)
			if report != nil && report.Documents > 0 {
				fmt.Fprintf(out, "Indexed %d documents (%d chunks) into %s\n",
					report.Documents, report.Chunks, strings.Join(report.Collections, ", "))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would be written without touching OpenSearch")
	return cmd
}

// indexRetrieval fills the indexing defaults. The embedding endpoint and key
// fall back to the chat endpoint settings.
func indexRetrieval(rc config.RetrievalConfig, llm config.LLMConfig) config.RetrievalConfig {
	rc.Endpoint = pickString(rc.Endpoint, defaultIndexEndpoint)
	rc.VectorField = pickString(rc.VectorField, defaultVectorField)
	rc.EmbeddingEndpoint = pickString(rc.EmbeddingEndpoint, llm.Endpoint)
	rc.EmbeddingAPIKey = pickString(rc.EmbeddingAPIKey, llm.APIKey)
	rc.EmbeddingModel = pickString(rc.EmbeddingModel, defaultEmbeddingModel)
	if rc.EmbeddingDimensions <= 0 {
		rc.EmbeddingDimensions = config.DefaultEmbeddingDimensions
	}
	return rc
}

func newEmbedder(rc config.RetrievalConfig) *embedopenai.OpenAIEmbedder {
	return embedopenai.New(embedopenai.Config{
		Endpoint:   rc.EmbeddingEndpoint,
		APIKey:     rc.EmbeddingAPIKey,
		Model:      rc.EmbeddingModel,
		Dimensions: rc.EmbeddingDimensions,
		Timeout:    rc.Timeout,
	})
}

// newChunker returns nil for "none" so each file is stored whole.
func newChunker(name, encoding string) (chunking.Chunker, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", chunkerNone:
		return nil, nil
	case chunkerSimple:
		return chunking.NewSimpleChunker(), nil
	case chunkerMarkdown:
		return markdown.New(), nil
	case chunkerToken:
		enc, err := tiktoken.New(encoding)
		if err != nil {
			return nil, err
		}
		return token.New(enc), nil
	default:
		return nil, fmt.Errorf("unknown chunker %q", name)
	}
}

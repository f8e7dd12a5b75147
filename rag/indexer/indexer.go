// Package indexer embeds local documents and writes them into vector collections.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/rag/chunking"
	"github.com/sweetpotato0/ai-dispatch/rag/document"
	"github.com/sweetpotato0/ai-dispatch/vector"
)

// Config controls how documents are stored.
type Config struct {
	// VectorField names the knn field. Blank indexes text only.
	VectorField string
	Dimensions  int
	// DryRun logs what would be written without touching the store.
	DryRun bool
}

// Report summarises one indexing run.
type Report struct {
	Collections []string
	Documents   int
	Chunks      int
}

// Option customizes an Indexer.
type Option func(*Indexer)

// WithChunker splits documents before embedding. Without one every
// document is stored whole.
func WithChunker(c chunking.Chunker) Option {
	return func(ix *Indexer) {
		ix.chunker = c
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// Indexer writes documents into a vector.Indexer.
type Indexer struct {
	store    vector.Indexer
	embedder vector.Embedder
	cfg      Config
	chunker  chunking.Chunker
	logger   *slog.Logger
}

// New creates an indexer. emb may be nil when cfg.VectorField is blank.
func New(store vector.Indexer, emb vector.Embedder, cfg Config, opts ...Option) *Indexer {
	if cfg.Dimensions <= 0 && emb != nil {
		cfg.Dimensions = emb.Dimension()
	}
	ix := &Indexer{
		store:    store,
		embedder: emb,
		cfg:      cfg,
		logger:   logging.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Index ensures every collection exists and stores each document. The first
// failure stops the run; the report covers what was written before it.
func (ix *Indexer) Index(ctx context.Context, docs []document.Document) (*Report, error) {
	report := &Report{}
	if len(docs) == 0 {
		return report, nil
	}
	if strings.TrimSpace(ix.cfg.VectorField) != "" && ix.embedder == nil {
		return report, fmt.Errorf("indexer: vector field %q needs an embedder", ix.cfg.VectorField)
	}

	order, grouped := document.Collections(docs)
	ix.logger.Info("indexing documents", "documents", len(docs), "collections", order)

	for _, collection := range order {
		if err := ix.ensure(ctx, collection); err != nil {
			return report, err
		}
		report.Collections = append(report.Collections, collection)

		for _, doc := range grouped[collection] {
			n, err := ix.indexDocument(ctx, collection, doc)
			if err != nil {
				return report, err
			}
			report.Documents++
			report.Chunks += n
		}
	}
	return report, nil
}

func (ix *Indexer) ensure(ctx context.Context, collection string) error {
	if ix.cfg.DryRun {
		ix.logger.Info("dry run: ensure collection", "collection", collection)
		return nil
	}
	if err := ix.store.EnsureCollection(ctx, collection, ix.cfg.VectorField, ix.cfg.Dimensions); err != nil {
		return fmt.Errorf("indexer: ensure %s: %w", collection, err)
	}
	return nil
}

func (ix *Indexer) indexDocument(ctx context.Context, collection string, doc document.Document) (int, error) {
	chunks, err := ix.split(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("indexer: chunk %s: %w", doc.Source, err)
	}

	for _, chunk := range chunks {
		title := doc.Title
		if chunk.Heading != "" && !strings.EqualFold(chunk.Heading, doc.Title) {
			title += " - " + chunk.Heading
		}
		entry := &vector.Document{
			ID:      chunk.ID,
			Title:   title,
			Content: chunk.Content,
			Source:  doc.Source,
		}
		if strings.TrimSpace(ix.cfg.VectorField) != "" {
			vec, err := ix.embedder.Embed(ctx, chunk.Content)
			if err != nil {
				return 0, fmt.Errorf("indexer: embed %s: %w", doc.Source, err)
			}
			entry.Vector = vec
		}

		if ix.cfg.DryRun {
			ix.logger.Info("dry run: would index", "collection", collection, "id", entry.ID, "source", doc.Source)
			continue
		}
		if err := ix.store.Index(ctx, collection, ix.cfg.VectorField, entry); err != nil {
			return 0, fmt.Errorf("indexer: store %s: %w", doc.Source, err)
		}
		ix.logger.Debug("indexed", "collection", collection, "id", entry.ID)
	}
	return len(chunks), nil
}

func (ix *Indexer) split(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	if ix.chunker == nil {
		return []document.Chunk{{ID: doc.ID, DocumentID: doc.ID, Content: doc.Content, Ordinal: 1}}, nil
	}
	chunks, err := ix.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 1 {
		chunks[0].ID = doc.ID
	}
	return chunks, nil
}

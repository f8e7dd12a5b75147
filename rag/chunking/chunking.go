package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/rag/document"
)

// Chunker splits documents into chunks that can be embedded and indexed.
type Chunker interface {
	Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error)
}

type Options struct {
	ChunkSize int
	Overlap   int
	Separator string
}

// SimpleChunker splits documents by separator and enforces max rune lengths.
type SimpleChunker struct {
	size    int
	overlap int
	sep     string
}

// Option customizes the simple chunker.
type Option func(*Options)

// WithChunkSize overrides the default chunk size (runes).
func WithChunkSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ChunkSize = size
		}
	}
}

// WithOverlap configures overlap (runes) between consecutive windows of one long segment.
func WithOverlap(overlap int) Option {
	return func(o *Options) {
		if overlap >= 0 {
			o.Overlap = overlap
		}
	}
}

// WithSeparator sets the logical separator used before windowing.
func WithSeparator(sep string) Option {
	return func(o *Options) {
		if sep != "" {
			o.Separator = sep
		}
	}
}

// NewSimpleChunker constructs a chunker with defaults suited to short support articles.
func NewSimpleChunker(opts ...Option) *SimpleChunker {
	cfg := &Options{
		ChunkSize: 800,
		Overlap:   120,
		Separator: "\n\n",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 4
	}
	return &SimpleChunker{
		size:    cfg.ChunkSize,
		overlap: cfg.Overlap,
		sep:     cfg.Separator,
	}
}

// Chunk packs separator-delimited segments into chunks of at most size runes.
// Segments longer than size are windowed with overlap.
func (c *SimpleChunker) Chunk(ctx context.Context, doc document.Document) ([]document.Chunk, error) {
	var (
		chunks  []document.Chunk
		current []rune
	)
	flush := func() {
		if text := strings.TrimSpace(string(current)); text != "" {
			chunks = append(chunks, c.newChunk(doc, len(chunks)+1, text))
		}
		current = current[:0]
	}

	for _, part := range strings.Split(doc.Content, c.sep) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		runes := []rune(strings.TrimSpace(part))

		if len(current) > 0 && len(current)+len(c.sep)+len(runes) > c.size {
			flush()
		}
		if len(runes) <= c.size {
			if len(current) > 0 {
				current = append(current, []rune(c.sep)...)
			}
			current = append(current, runes...)
			continue
		}

		flush()
		for len(runes) > c.size {
			chunks = append(chunks, c.newChunk(doc, len(chunks)+1, strings.TrimSpace(string(runes[:c.size]))))
			runes = runes[c.size-c.overlap:]
		}
		current = append(current, runes...)
	}
	flush()

	if len(chunks) == 0 {
		chunks = append(chunks, c.newChunk(doc, 1, strings.TrimSpace(doc.Content)))
	}
	return chunks, nil
}

func (c *SimpleChunker) newChunk(doc document.Document, ordinal int, content string) document.Chunk {
	return document.Chunk{
		ID:         fmt.Sprintf("%s-%d", doc.ID, ordinal),
		DocumentID: doc.ID,
		Content:    content,
		Ordinal:    ordinal,
	}
}

// Package token windows documents by model tokens so every chunk fits the
// embedding model's input limit.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/rag/document"
)

// Encoder converts text to model token IDs and back.
type Encoder interface {
	Encode(text string) []int
	Decode(ids []int) string
}

// Chunker cuts documents into overlapping token windows.
type Chunker struct {
	enc           Encoder
	maxTokens     int
	overlapTokens int
}

// Option customises the token chunker.
type Option func(*Chunker)

// WithMaxTokens sets the maximum allowed tokens per chunk (default 256).
func WithMaxTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens > 0 {
			c.maxTokens = tokens
		}
	}
}

// WithOverlapTokens sets how many tokens are shared between consecutive chunks.
func WithOverlapTokens(tokens int) Option {
	return func(c *Chunker) {
		if tokens >= 0 {
			c.overlapTokens = tokens
		}
	}
}

// New creates a token chunker over enc.
func New(enc Encoder, opts ...Option) *Chunker {
	ch := &Chunker{
		enc:           enc,
		maxTokens:     256,
		overlapTokens: 32,
	}
	for _, opt := range opts {
		opt(ch)
	}
	if ch.overlapTokens >= ch.maxTokens {
		ch.overlapTokens = ch.maxTokens / 4
	}
	return ch
}

// Chunk implements chunking.Chunker.
func (c *Chunker) Chunk(_ context.Context, doc document.Document) ([]document.Chunk, error) {
	if c.enc == nil {
		return nil, errors.New("token chunker: no encoder")
	}
	ids := c.enc.Encode(doc.Content)
	if len(ids) <= c.maxTokens {
		return []document.Chunk{newChunk(doc, 1, doc.Content)}, nil
	}

	var chunks []document.Chunk
	step := c.maxTokens - c.overlapTokens
	for start := 0; start < len(ids); start += step {
		end := start + c.maxTokens
		if end > len(ids) {
			end = len(ids)
		}
		if text := strings.TrimSpace(c.enc.Decode(ids[start:end])); text != "" {
			chunks = append(chunks, newChunk(doc, len(chunks)+1, text))
		}
		if end == len(ids) {
			break
		}
	}
	return chunks, nil
}

func newChunk(doc document.Document, ordinal int, content string) document.Chunk {
	return document.Chunk{
		ID:         fmt.Sprintf("%s-%d", doc.ID, ordinal),
		DocumentID: doc.ID,
		Content:    strings.TrimSpace(content),
		Ordinal:    ordinal,
	}
}

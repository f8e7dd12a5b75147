package embedder

import (
	"context"

	"github.com/sweetpotato0/ai-dispatch/vector"
)

// DefaultDimensions caps query vectors when no limit is configured.
const DefaultDimensions = 1536

// Embedder exposes methods tailored for RAG components.
type Embedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorAdapter bridges the generic vector.Embedder interface into a rag Embedder.
type VectorAdapter struct {
	base vector.Embedder
}

// NewVectorAdapter creates a new adapter.
func NewVectorAdapter(base vector.Embedder) *VectorAdapter {
	return &VectorAdapter{base: base}
}

// EmbedQuery embeds the query string.
func (v *VectorAdapter) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if v == nil || v.base == nil {
		return nil, nil
	}
	return v.base.Embed(ctx, query)
}

// Truncate converts a raw embedding to float32, keeping at most dims values.
// A non-positive dims keeps the whole vector.
func Truncate(raw []float64, dims int) []float32 {
	n := len(raw)
	if dims > 0 && n > dims {
		n = dims
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(raw[i])
	}
	return out
}

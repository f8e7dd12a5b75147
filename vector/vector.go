package vector

import (
	"context"
	"math"
	"strings"
)

// Document is an indexed text with its embedding.
type Document struct {
	ID      string
	Title   string
	Content string
	// Source is where the text came from, usually a file path.
	Source string
	Vector []float32
}

// Hit is one ranked result of a nearest-neighbour query.
// Content and Body mirror the two text fields a collection may carry.
type Hit struct {
	ID      string
	Title   string
	Content string
	Body    string
	Score   float64
}

// Text returns Content, falling back to Body when Content is blank.
func (h Hit) Text() string {
	if strings.TrimSpace(h.Content) != "" {
		return h.Content
	}
	return h.Body
}

// KNNRequest describes a k-nearest-neighbour query against one collection.
type KNNRequest struct {
	Collection string
	Field      string
	Vector     []float32
	K          int
}

// Searcher runs nearest-neighbour queries against named collections.
type Searcher interface {
	// KNN returns at most req.K hits in engine rank order.
	KNN(ctx context.Context, req KNNRequest) ([]Hit, error)
}

// Indexer creates collections and stores embedded documents in them.
type Indexer interface {
	// EnsureCollection creates the collection with a vector field of the
	// given dimension unless it already exists.
	EnsureCollection(ctx context.Context, collection, field string, dimensions int) error
	// Index inserts or replaces doc, keyed by doc.ID.
	Index(ctx context.Context, collection, field string, doc *Document) error
}

// Embedder defines the interface for creating embeddings from text
type Embedder interface {
	// Embed converts text to a vector embedding
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension return number of embedding dimensions
	Dimension() int
}

// CosineSimilarity calculates the cosine similarity between two vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Normalize scales the vector to unit length (L2 norm).
func Normalize(vec []float32) []float32 {
	if len(vec) == 0 {
		return vec
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

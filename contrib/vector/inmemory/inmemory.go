package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/ai-dispatch/vector"
)

// Store keeps named collections of documents in memory and answers
// nearest-neighbour queries by cosine similarity.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*vector.Document
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*vector.Document),
	}
}

// Add inserts or replaces a document in the collection.
func (s *Store) Add(ctx context.Context, collection string, doc *vector.Document) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if doc.ID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}
	if len(doc.Vector) == 0 {
		return fmt.Errorf("document vector cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]*vector.Document)
		s.collections[collection] = docs
	}
	docs[doc.ID] = doc
	return nil
}

// KNN returns the req.K most similar documents; the field name is ignored.
func (s *Store) KNN(ctx context.Context, req vector.KNNRequest) ([]vector.Hit, error) {
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, ok := s.collections[req.Collection]
	if !ok {
		return nil, fmt.Errorf("collection %q: not found", req.Collection)
	}

	k := req.K
	if k <= 0 {
		k = 10
	}

	hits := make([]vector.Hit, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Vector) != len(req.Vector) {
			continue
		}
		hits = append(hits, vector.Hit{
			ID:      doc.ID,
			Title:   doc.Title,
			Content: doc.Content,
			Score:   vector.CosineSimilarity(req.Vector, doc.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// EnsureCollection creates an empty collection; field and dimensions are ignored.
func (s *Store) EnsureCollection(ctx context.Context, collection, field string, dimensions int) error {
	if collection == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]*vector.Document)
	}
	return nil
}

// Index satisfies vector.Indexer.
func (s *Store) Index(ctx context.Context, collection, field string, doc *vector.Document) error {
	return s.Add(ctx, collection, doc)
}

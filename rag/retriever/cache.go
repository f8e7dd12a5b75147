package retriever

import (
	"context"
	"sync"
)

// Source is anything that can answer a query with a Result.
type Source interface {
	Search(ctx context.Context, query string) Result
}

// ReadySource is a Source that can report whether it is configured well
// enough to search at all.
type ReadySource interface {
	Source
	Ready() bool
}

// Cache remembers the most recent query and its result so that scoring and
// responding to the same literal query hit the network once.
type Cache struct {
	source Source

	mu     sync.Mutex
	query  string
	result Result
	filled bool
}

// NewCache wraps a source with a single-slot cache.
func NewCache(source Source) *Cache {
	return &Cache{source: source}
}

// Refresh always searches and stores the result in the slot.
func (c *Cache) Refresh(ctx context.Context, query string) Result {
	result := c.source.Search(ctx, query)
	c.Store(query, result)
	return result
}

// Lookup returns the cached result when query matches the slot exactly,
// otherwise searches and replaces the slot.
func (c *Cache) Lookup(ctx context.Context, query string) Result {
	if result, ok := c.Get(query); ok {
		return result
	}
	return c.Refresh(ctx, query)
}

// Get returns the cached result for an exact query match.
func (c *Cache) Get(query string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filled && c.query == query {
		return c.result, true
	}
	return Result{}, false
}

// Store replaces the slot.
func (c *Cache) Store(query string, result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
	c.result = result
	c.filled = true
}

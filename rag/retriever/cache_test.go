package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingSource struct {
	calls int
}

func (c *countingSource) Search(_ context.Context, query string) Result {
	c.calls++
	return Result{Query: query, Snippets: []Snippet{{Content: query}}, Confidence: 0.5}
}

func TestCacheLookupReusesExactQuery(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src)
	ctx := context.Background()

	first := cache.Refresh(ctx, "refund")
	second := cache.Lookup(ctx, "refund")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	cache.Lookup(ctx, "Refund")
	assert.Equal(t, 2, src.calls, "keys are compared exactly")

	cache.Lookup(ctx, "refund")
	assert.Equal(t, 3, src.calls, "only one slot is kept")
}

func TestCacheRefreshAlwaysSearches(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src)
	ctx := context.Background()

	cache.Refresh(ctx, "q")
	cache.Refresh(ctx, "q")
	assert.Equal(t, 2, src.calls)

	_, ok := cache.Get("other")
	assert.False(t, ok)
}

func TestCacheEmptySlot(t *testing.T) {
	src := &countingSource{}
	cache := NewCache(src)

	_, ok := cache.Get("")
	assert.False(t, ok, "an unfilled slot never matches, even for the empty query")

	cache.Lookup(context.Background(), "")
	assert.Equal(t, 1, src.calls)
}

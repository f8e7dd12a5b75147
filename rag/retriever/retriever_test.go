package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-dispatch/vector"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

type stubSearcher struct {
	mu       sync.Mutex
	hits     map[string][]vector.Hit
	failures map[string]error
	requests []vector.KNNRequest
}

func (s *stubSearcher) KNN(_ context.Context, req vector.KNNRequest) ([]vector.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.failures[req.Collection]; err != nil {
		return nil, err
	}
	return s.hits[req.Collection], nil
}

func readyConfig(collections ...string) Config {
	return Config{
		Endpoint:          "http://search",
		Collections:       collections,
		VectorField:       "embedding",
		EmbeddingEndpoint: "http://embed",
		EmbeddingModel:    "m",
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.5, 0.5},
		{1, 1},
		{5, 0.5},
		{50, 1},
		{0, 0},
		{-1, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestReady(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1}}
	srch := &stubSearcher{}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"complete", func(*Config) {}, true},
		{"blank endpoint", func(c *Config) { c.Endpoint = "  " }, false},
		{"no collections", func(c *Config) { c.Collections = nil }, false},
		{"only blank collections", func(c *Config) { c.Collections = []string{" "} }, false},
		{"no vector field", func(c *Config) { c.VectorField = "" }, false},
		{"no embedding endpoint", func(c *Config) { c.EmbeddingEndpoint = "" }, false},
		{"no embedding model", func(c *Config) { c.EmbeddingModel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := readyConfig("docs")
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, New(srch, emb, cfg).Ready())
		})
	}

	assert.False(t, New(nil, emb, readyConfig("docs")).Ready())
	assert.False(t, New(srch, nil, readyConfig("docs")).Ready())
	var nilRetriever *Retriever
	assert.False(t, nilRetriever.Ready())
}

func TestSearchNotReadyMakesNoCalls(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1}}
	srch := &stubSearcher{}
	cfg := readyConfig("docs")
	cfg.EmbeddingModel = ""

	result := New(srch, emb, cfg).Search(context.Background(), "refund")
	assert.True(t, result.IsEmpty())
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "refund", result.Query)
	assert.Zero(t, emb.calls)
	assert.Empty(t, srch.requests)
}

func TestSearchBlankQuery(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1}}
	result := New(&stubSearcher{}, emb, readyConfig("docs")).Search(context.Background(), "   ")
	assert.True(t, result.IsEmpty())
	assert.Zero(t, emb.calls)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	for _, emb := range []*stubEmbedder{
		{err: errors.New("connection refused")},
		{vec: []float32{}},
	} {
		srch := &stubSearcher{}
		result := New(srch, emb, readyConfig("docs")).Search(context.Background(), "q")
		assert.True(t, result.IsEmpty())
		assert.Zero(t, result.Confidence)
		assert.Empty(t, srch.requests)
	}
}

func TestSearchCollectsInCollectionOrder(t *testing.T) {
	srch := &stubSearcher{hits: map[string][]vector.Hit{
		"faq": {
			{Title: "Refunds", Content: "Refunds take two days.", Score: 0.4},
			{Body: "Body fallback.", Score: 0.3},
			{Title: "No text", Score: 0.99},
		},
		"policies": {
			{Title: " Policy ", Content: "Escalate to billing.", Score: 0.8},
		},
	}}
	emb := &stubEmbedder{vec: []float32{0.1, 0.2}}

	result := New(srch, emb, readyConfig("faq", "policies")).Search(context.Background(), "refund")
	require.Len(t, result.Snippets, 3)
	assert.Equal(t, Snippet{Collection: "faq", Title: "Refunds", Content: "Refunds take two days.", Score: 0.4}, result.Snippets[0])
	assert.Equal(t, "Body fallback.", result.Snippets[1].Content)
	assert.Equal(t, Snippet{Collection: "policies", Title: "Policy", Content: "Escalate to billing.", Score: 0.8}, result.Snippets[2])
	// the skipped hit's score does not count
	assert.Equal(t, 0.8, result.Confidence)

	require.Len(t, srch.requests, 2)
	assert.Equal(t, vector.KNNRequest{Collection: "faq", Field: "embedding", Vector: []float32{0.1, 0.2}, K: 3}, srch.requests[0])
	assert.Equal(t, "policies", srch.requests[1].Collection)
}

func TestSearchCapsSectionsPerIndex(t *testing.T) {
	hits := make([]vector.Hit, 6)
	for i := range hits {
		hits[i] = vector.Hit{Content: fmt.Sprintf("h%d", i), Score: 2}
	}
	srch := &stubSearcher{hits: map[string][]vector.Hit{"a": hits, "b": hits}}
	cfg := readyConfig("a", "b")
	cfg.MaxSectionsPerIndex = 2

	result := New(srch, &stubEmbedder{vec: []float32{1}}, cfg).Search(context.Background(), "q")
	assert.Len(t, result.Snippets, 4)
	assert.Equal(t, 2, srch.requests[0].K)
	assert.Equal(t, 0.2, result.Confidence)
}

func TestSearchSkipsFailingCollection(t *testing.T) {
	srch := &stubSearcher{
		hits: map[string][]vector.Hit{
			"good": {{Content: "still here", Score: 0.6}},
		},
		failures: map[string]error{"bad": errors.New("status 500")},
	}

	result := New(srch, &stubEmbedder{vec: []float32{1}}, readyConfig("bad", "good")).Search(context.Background(), "q")
	require.Len(t, result.Snippets, 1)
	assert.Equal(t, "good", result.Snippets[0].Collection)
	assert.Equal(t, 0.6, result.Confidence)
}

func TestSearchGlobalBudget(t *testing.T) {
	long := strings.Repeat("x", 30)
	srch := &stubSearcher{hits: map[string][]vector.Hit{
		"a": {{Content: long, Score: 0.5}, {Content: long, Score: 0.5}},
		"b": {{Content: long, Score: 0.9}},
		"c": {{Content: long, Score: 0.9}},
	}}
	cfg := readyConfig("a", "b", "c")
	cfg.MaxCombinedChars = 50

	result := New(srch, &stubEmbedder{vec: []float32{1}}, cfg).Search(context.Background(), "q")
	require.Len(t, result.Snippets, 2)
	assert.Equal(t, 30, len(result.Snippets[0].Content))
	assert.Equal(t, 20, len(result.Snippets[1].Content))
	assert.Equal(t, 50, result.TotalChars())
	// budget exhausted inside "a": "b" and "c" are never queried
	assert.Len(t, srch.requests, 1)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestSearchBudgetNeverExceeded(t *testing.T) {
	for _, budget := range []int{1, 7, 64, 500, 4000} {
		for _, size := range []int{1, 13, 250, 5000} {
			hits := []vector.Hit{
				{Content: strings.Repeat("é", size), Score: 1},
				{Content: strings.Repeat("a", size), Score: 1},
				{Content: strings.Repeat("b", size), Score: 1},
			}
			srch := &stubSearcher{hits: map[string][]vector.Hit{"a": hits, "b": hits, "c": hits}}
			cfg := readyConfig("a", "b", "c")
			cfg.MaxCombinedChars = budget

			result := New(srch, &stubEmbedder{vec: []float32{1}}, cfg).Search(context.Background(), "q")
			assert.LessOrEqual(t, result.TotalChars(), budget, "budget=%d size=%d", budget, size)
			assert.LessOrEqual(t, len(result.Snippets), 9)
		}
	}
}

func TestSearchDefaultBudget(t *testing.T) {
	srch := &stubSearcher{hits: map[string][]vector.Hit{
		"a": {{Content: strings.Repeat("z", 10000), Score: 3}},
	}}
	result := New(srch, &stubEmbedder{vec: []float32{1}}, readyConfig("a")).Search(context.Background(), "q")
	require.Len(t, result.Snippets, 1)
	assert.Equal(t, DefaultMaxCombinedChars, result.TotalChars())
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
}

func TestSearchContentFilter(t *testing.T) {
	srch := &stubSearcher{hits: map[string][]vector.Hit{
		"a": {{Content: "<p>hello</p>", Score: 0.5}, {Content: "<br>", Score: 0.9}},
	}}
	filter := func(s string) string {
		s = strings.ReplaceAll(s, "<p>", "")
		s = strings.ReplaceAll(s, "</p>", "")
		return strings.ReplaceAll(s, "<br>", "")
	}

	result := New(srch, &stubEmbedder{vec: []float32{1}}, readyConfig("a"), WithContentFilter(filter)).
		Search(context.Background(), "q")
	require.Len(t, result.Snippets, 1)
	assert.Equal(t, "hello", result.Snippets[0].Content)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestResultHelpers(t *testing.T) {
	r := Result{Snippets: []Snippet{
		{Collection: "faq", Title: "Refunds", Content: "Two days."},
		{Collection: "plans", Content: "Growth is 49."},
	}}

	assert.Equal(t, "faq (Refunds): Two days.", r.Summary())
	assert.Equal(t, "plans", r.Snippets[1].Source())
	assert.Len(t, r.Top(1), 1)
	assert.Len(t, r.Top(10), 2)
	assert.Equal(t, "Notes:\n- Source: faq (Refunds)\nTwo days.\n- Source: plans\nGrowth is 49.\n", r.Format("Notes:\n", 3))
	assert.Equal(t, "", Empty("q").Summary())
}

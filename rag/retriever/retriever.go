package retriever

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/pkg/telemetry"
	"github.com/sweetpotato0/ai-dispatch/rag/embedder"
	"github.com/sweetpotato0/ai-dispatch/vector"
)

// Defaults applied when the corresponding Config field is not positive.
const (
	DefaultMaxSectionsPerIndex = 3
	DefaultMaxCombinedChars    = 4000
)

// Config controls retrieval behaviour.
type Config struct {
	// Endpoint of the search backend; only checked for readiness here,
	// the Searcher owns the connection.
	Endpoint    string
	Collections []string
	VectorField string

	EmbeddingEndpoint string
	EmbeddingModel    string

	MaxSectionsPerIndex int
	MaxCombinedChars    int
}

func (c Config) sectionsPerIndex() int {
	if c.MaxSectionsPerIndex > 0 {
		return c.MaxSectionsPerIndex
	}
	return DefaultMaxSectionsPerIndex
}

func (c Config) combinedChars() int {
	if c.MaxCombinedChars > 0 {
		return c.MaxCombinedChars
	}
	return DefaultMaxCombinedChars
}

// collections returns the configured names without blanks.
func (c Config) collections() []string {
	out := make([]string, 0, len(c.Collections))
	for _, name := range c.Collections {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Option customizes a Retriever.
type Option func(*Retriever)

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithContentFilter transforms hit text before it is budgeted, for example to strip markup.
func WithContentFilter(fn func(string) string) Option {
	return func(r *Retriever) {
		r.filter = fn
	}
}

// Retriever turns a query into budget-clipped snippets via embedding plus kNN search.
type Retriever struct {
	searcher vector.Searcher
	embedder embedder.Embedder
	cfg      Config
	filter   func(string) string
	logger   *slog.Logger
}

// New creates a retriever.
func New(searcher vector.Searcher, emb embedder.Embedder, cfg Config, opts ...Option) *Retriever {
	r := &Retriever{
		searcher: searcher,
		embedder: emb,
		cfg:      cfg,
		logger:   logging.WithComponent("retriever"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Ready reports whether search endpoint, collections and vector support are all configured.
func (r *Retriever) Ready() bool {
	if r == nil || r.searcher == nil || r.embedder == nil {
		return false
	}
	return strings.TrimSpace(r.cfg.Endpoint) != "" &&
		len(r.cfg.collections()) > 0 &&
		strings.TrimSpace(r.cfg.VectorField) != "" &&
		strings.TrimSpace(r.cfg.EmbeddingEndpoint) != "" &&
		strings.TrimSpace(r.cfg.EmbeddingModel) != ""
}

// Search never fails: unready configuration, blank queries and transport
// errors all produce an empty result.
func (r *Retriever) Search(ctx context.Context, query string) Result {
	if strings.TrimSpace(query) == "" || !r.Ready() {
		return Empty(query)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "retriever.Search")
	var result Result
	defer func() {
		span.SetAttributes(
			attribute.Int("retriever.snippets", len(result.Snippets)),
			attribute.Float64("retriever.confidence", result.Confidence),
		)
		telemetry.End(span, nil)
	}()

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil || len(vec) == 0 {
		if err != nil {
			span.RecordError(err)
		}
		r.logger.Warn("embedding unavailable", "error", err)
		result = Empty(query)
		return result
	}

	result = r.collect(ctx, query, vec)
	return result
}

func (r *Retriever) collect(ctx context.Context, query string, vec []float32) Result {
	k := r.cfg.sectionsPerIndex()
	budget := r.cfg.combinedChars()

	var (
		snippets []Snippet
		used     int
		topScore float64
	)

collections:
	for _, collection := range r.cfg.collections() {
		if used >= budget {
			break
		}
		hits, err := r.searcher.KNN(ctx, vector.KNNRequest{
			Collection: collection,
			Field:      r.cfg.VectorField,
			Vector:     vec,
			K:          k,
		})
		if err != nil {
			r.logger.Warn("knn search failed, skipping collection", "collection", collection, "error", err)
			continue
		}

		taken := 0
		for _, hit := range hits {
			if taken >= k {
				break
			}
			text := hit.Text()
			if r.filter != nil {
				text = r.filter(text)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}

			remaining := budget - used
			if remaining <= 0 {
				break collections
			}
			clipped := clip(text, remaining)

			snippets = append(snippets, Snippet{
				Collection: collection,
				Title:      strings.TrimSpace(hit.Title),
				Content:    clipped,
				Score:      hit.Score,
			})
			used += utf8.RuneCountInString(clipped)
			topScore = math.Max(topScore, hit.Score)
			taken++
		}
	}

	r.logger.Debug("retrieval completed", "snippets", len(snippets), "chars", used, "top_score", topScore)
	return Result{
		Query:      query,
		Snippets:   snippets,
		Confidence: Normalize(topScore),
	}
}

// clip returns at most limit characters of text.
func clip(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// Normalize maps a raw engine score into [0,1]: scores in (0,1] pass through,
// larger scores are divided by ten and capped at 1, everything else is 0.
func Normalize(score float64) float64 {
	switch {
	case math.IsNaN(score) || math.IsInf(score, 0):
		return 0
	case score <= 0:
		return 0
	case score <= 1:
		return score
	default:
		return math.Min(1, score/10)
	}
}

package opensearch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/pkg/logging"
	"github.com/sweetpotato0/ai-dispatch/vector"
)

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 15 * time.Second

var sourceFields = []string{"title", "content", "body"}

// Config holds connection settings for an OpenSearch (or Elasticsearch) cluster.
type Config struct {
	Endpoint string
	Username string
	Password string
	// APIKey takes precedence over basic auth when set.
	APIKey  string
	Timeout time.Duration
	// HTTPClient supplies the transport. It is copied, so Timeout never leaks
	// back into a client shared with other callers.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client issues kNN queries against OpenSearch collections.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// New creates a client for the configured endpoint.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rc *resty.Client
	if cfg.HTTPClient != nil {
		hc := *cfg.HTTPClient
		rc = resty.NewWithClient(&hc)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	switch {
	case strings.TrimSpace(cfg.APIKey) != "":
		rc.SetHeader("Authorization", "ApiKey "+strings.TrimSpace(cfg.APIKey))
	case strings.TrimSpace(cfg.Username) != "":
		rc.SetBasicAuth(cfg.Username, cfg.Password)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.WithComponent("opensearch")
	}
	return &Client{http: rc, logger: logger}
}

// KNN posts a knn query to {endpoint}/{collection}/_search.
func (c *Client) KNN(ctx context.Context, req vector.KNNRequest) ([]vector.Hit, error) {
	if req.Collection == "" || req.Field == "" {
		return nil, fmt.Errorf("opensearch: collection and vector field are required: %w", errorskg.ErrInvalidInput)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", req.Collection).
		SetBody(searchBody(req)).
		Post("/{collection}/_search")
	if err != nil {
		return nil, fmt.Errorf("opensearch: search %s: %w", req.Collection, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("opensearch: search %s: status %d: %w",
			req.Collection, resp.StatusCode(), errorskg.ErrSearchFailed)
	}

	hits := parseHits(resp.Body())
	c.logger.Debug("knn search completed", "collection", req.Collection, "hits", len(hits))
	return hits, nil
}

func searchBody(req vector.KNNRequest) map[string]any {
	return map[string]any{
		"size": req.K,
		"query": map[string]any{
			"knn": map[string]any{
				req.Field: map[string]any{
					"vector": req.Vector,
					"k":      req.K,
				},
			},
		},
		"_source": sourceFields,
	}
}

func parseHits(body []byte) []vector.Hit {
	var hits []vector.Hit
	gjson.GetBytes(body, "hits.hits").ForEach(func(_, hit gjson.Result) bool {
		hits = append(hits, vector.Hit{
			ID:      hit.Get("_id").String(),
			Title:   hit.Get("_source.title").String(),
			Content: hit.Get("_source.content").String(),
			Body:    hit.Get("_source.body").String(),
			Score:   hit.Get("_score").Float(),
		})
		return true
	})
	return hits
}

// EnsureCollection creates a knn-enabled index unless HEAD /{collection}
// already succeeds. The vector field uses an HNSW graph with cosine similarity.
func (c *Client) EnsureCollection(ctx context.Context, collection, field string, dimensions int) error {
	if collection == "" {
		return fmt.Errorf("opensearch: collection is required: %w", errorskg.ErrInvalidInput)
	}

	head, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		Head("/{collection}")
	if err != nil {
		return fmt.Errorf("opensearch: check index %s: %w", collection, err)
	}
	switch {
	case head.IsSuccess():
		return nil
	case head.StatusCode() != http.StatusNotFound:
		return fmt.Errorf("opensearch: check index %s: status %d", collection, head.StatusCode())
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("collection", collection).
		SetBody(indexMapping(field, dimensions)).
		Put("/{collection}")
	if err != nil {
		return fmt.Errorf("opensearch: create index %s: %w", collection, err)
	}
	if resp.IsError() {
		return fmt.Errorf("opensearch: create index %s: status %d", collection, resp.StatusCode())
	}
	c.logger.Info("index created", "collection", collection, "dimensions", dimensions)
	return nil
}

// Index writes doc to /{collection}/_doc/{id}.
func (c *Client) Index(ctx context.Context, collection, field string, doc *vector.Document) error {
	if doc == nil || doc.ID == "" || collection == "" {
		return fmt.Errorf("opensearch: collection and document id are required: %w", errorskg.ErrInvalidInput)
	}

	payload := map[string]any{
		"title":      doc.Title,
		"content":    doc.Content,
		"source":     doc.Source,
		"indexed_at": time.Now().UTC().Format(time.RFC3339),
	}
	if field != "" && len(doc.Vector) > 0 {
		payload[field] = doc.Vector
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"collection": collection, "id": doc.ID}).
		SetBody(payload).
		Put("/{collection}/_doc/{id}")
	if err != nil {
		return fmt.Errorf("opensearch: index %s/%s: %w", collection, doc.ID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("opensearch: index %s/%s: status %d", collection, doc.ID, resp.StatusCode())
	}
	c.logger.Debug("document indexed", "collection", collection, "id", doc.ID)
	return nil
}

func indexMapping(field string, dimensions int) map[string]any {
	properties := map[string]any{
		"title":   map[string]any{"type": "text"},
		"content": map[string]any{"type": "text"},
		"source":  map[string]any{"type": "keyword"},
	}
	if field != "" {
		properties[field] = map[string]any{
			"type":      "knn_vector",
			"dimension": dimensions,
			"method": map[string]any{
				"name":       "hnsw",
				"engine":     "faiss",
				"space_type": "cosinesimil",
			},
		}
	}
	return map[string]any{
		"settings": map[string]any{"index.knn": true},
		"mappings": map[string]any{"properties": properties},
	}
}

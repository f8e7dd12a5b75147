package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/rag/embedder"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 15 * time.Second

// Config describes an OpenAI-compatible embeddings endpoint.
type Config struct {
	// Endpoint is either the full ".../embeddings" URL or the API base URL.
	Endpoint   string
	APIKey     string
	Model      string
	Dimensions int
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OpenAIEmbedder implements vector.Embedder by using openai.
type OpenAIEmbedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	dimension int
}

// New create OpenAIEmbedder.
func New(cfg Config) *OpenAIEmbedder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = embedder.DefaultDimensions
	}

	opts := []option.RequestOption{
		option.WithBaseURL(BaseURL(cfg.Endpoint, "embeddings")),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else {
		opts = append(opts, option.WithHeaderDel("authorization"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &OpenAIEmbedder{
		client:    openaisdk.NewClient(opts...),
		model:     openaisdk.EmbeddingModel(cfg.Model),
		dimension: dims,
	}
}

// Dimension return number of embedding dimensions
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

// Embed sends {model, input} and returns data[0].embedding truncated to the dimension cap.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("create embedding: %w", errorskg.ErrNoEmbedding)
	}
	return embedder.Truncate(resp.Data[0].Embedding, e.dimension), nil
}

// EmbedQuery satisfies rag/embedder.Embedder.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.Embed(ctx, query)
}

// BaseURL strips a trailing resource path (for example "embeddings" or
// "chat/completions") from a full endpoint URL so the SDK can append it again.
func BaseURL(endpoint, resource string) string {
	base := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if strings.HasSuffix(base, "/"+resource) {
		base = strings.TrimSuffix(base, "/"+resource)
	}
	return base + "/"
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/sweetpotato0/ai-dispatch/agent"
	embedopenai "github.com/sweetpotato0/ai-dispatch/contrib/embedder/openai"
	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/message"
	"github.com/sweetpotato0/ai-dispatch/tool"
)

const (
	// DefaultModel lets OpenRouter pick a model.
	DefaultModel = "openrouter/auto"
	// DefaultTimeout bounds a single chat-completion request.
	DefaultTimeout = 30 * time.Second
)

// Config holds chat-completion provider configuration
type Config struct {
	// Endpoint is either the full ".../chat/completions" URL or the API base URL.
	Endpoint    string
	APIKey      string
	Model       string
	Referer     string
	Title       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Provider implements agent.LLMClient against an OpenAI-compatible endpoint.
type Provider struct {
	client openaisdk.Client
	model  string
	config Config
}

// New creates a provider. Requests are never retried automatically.
func New(cfg Config) *Provider {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithBaseURL(embedopenai.BaseURL(cfg.Endpoint, "chat/completions")),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	} else {
		opts = append(opts, option.WithHeaderDel("authorization"))
	}
	if cfg.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Provider{
		client: openaisdk.NewClient(opts...),
		model:  cfg.Model,
		config: cfg,
	}
}

// Model returns the model name sent with every request.
func (p *Provider) Model() string {
	return p.model
}

// Generate implements agent.LLMClient.
//
// A non-success HTTP status is reported as errors.ErrUpstreamStatus and a reply
// without choices as errors.ErrEmptyResponse; anything else is a transport failure.
func (p *Provider) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: convertMessages(req.Messages),
		Model:    openaisdk.ChatModel(p.model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openaisdk.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openaisdk.Int(p.config.MaxTokens)
	}
	if len(req.Tools) > 0 {
		params.Tools = convertTools(req.Tools)
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openaisdk.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("chat completion status %d: %w", apiErr.StatusCode, errorskg.ErrUpstreamStatus)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: %w", errorskg.ErrEmptyResponse)
	}

	choice := completion.Choices[0]
	reply := message.NewMessage(message.RoleAssistant, choice.Message.Content)
	for _, tc := range choice.Message.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, message.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: tool.ParseArguments(tc.Function.Arguments),
		})
	}
	return &agent.GenerateResponse{Message: reply}, nil
}

func convertMessages(messages []*message.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case message.RoleUser:
			out = append(out, openaisdk.UserMessage(msg.Content))
		case message.RoleAssistant:
			out = append(out, openaisdk.AssistantMessage(msg.Content))
		}
	}
	return out
}

// convertTools maps tool.Tool JSON schemas ({"type":"function","function":{...}}) onto SDK params.
func convertTools(schemas []map[string]any) []openaisdk.ChatCompletionToolUnionParam {
	out := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, schema := range schemas {
		fn, ok := schema["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		if name == "" {
			continue
		}
		def := shared.FunctionDefinitionParam{Name: name}
		if desc, _ := fn["description"].(string); desc != "" {
			def.Description = openaisdk.String(desc)
		}
		if params, ok := fn["parameters"].(map[string]any); ok {
			def.Parameters = shared.FunctionParameters(params)
		}
		out = append(out, openaisdk.ChatCompletionFunctionTool(def))
	}
	return out
}

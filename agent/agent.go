package agent

import (
	"context"
	"math"
	"strings"

	"github.com/sweetpotato0/ai-dispatch/memory"
	"github.com/sweetpotato0/ai-dispatch/message"
)

// Agent is a capability-scored conversational agent.
//
// CanHandle reports how well the agent fits a query in [0, 1]. Respond
// produces the reply text for a query the router already assigned to the
// agent. Respond never fails: transport problems degrade to fallback text.
type Agent interface {
	Name() string
	Memory() *memory.Memory
	CanHandle(ctx context.Context, query string) float64
	Respond(ctx context.Context, query string) string
}

// LLMClient defines the interface for chat-completion providers
type LLMClient interface {
	// Generate generates a response from the LLM
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest bundles inputs for a non-streaming LLM invocation.
type GenerateRequest struct {
	Messages []*message.Message
	Tools    []map[string]any
}

// GenerateResponse captures the LLM reply.
type GenerateResponse struct {
	Message *message.Message
}

// Base carries the state every agent owns: a display name and its memory.
// Concrete agents embed it.
type Base struct {
	name   string
	memory *memory.Memory
}

// Option configures a Base.
type Option func(*Base)

// WithMemory replaces the default memory.
func WithMemory(m *memory.Memory) Option {
	return func(b *Base) {
		if m != nil {
			b.memory = m
		}
	}
}

// WithCapacity sets the memory capacity.
func WithCapacity(n int) Option {
	return func(b *Base) {
		b.memory = memory.NewWithCapacity(n)
	}
}

// NewBase creates a Base with a memory of memory.DefaultCapacity.
func NewBase(name string, opts ...Option) Base {
	b := Base{name: name, memory: memory.New()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Name returns the display name used to attribute replies.
func (b *Base) Name() string {
	return b.name
}

// Memory returns the agent's conversation log.
func (b *Base) Memory() *memory.Memory {
	return b.memory
}

// Replay converts the conversation log into chat turns: user entries become
// user messages and entries spoken by this agent become assistant messages.
// Entries attributed to any other speaker are dropped.
func (b *Base) Replay() []*message.Message {
	history := b.memory.Messages()
	out := make([]*message.Message, 0, len(history))
	for _, m := range history {
		switch {
		case m.Role == message.RoleUser:
			out = append(out, message.NewMessage(message.RoleUser, m.Content))
		case m.Role == message.RoleAssistant && m.Speaker == b.name:
			out = append(out, message.NewMessage(message.RoleAssistant, m.Content))
		}
	}
	return out
}

// ClampScore forces a score into [0, 1]; NaN and infinities become 0.
func ClampScore(s float64) float64 {
	switch {
	case math.IsNaN(s) || math.IsInf(s, 0) || s <= 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// FillTemplate substitutes the literal query for every %QUESTION% placeholder.
func FillTemplate(template, query string) string {
	return strings.ReplaceAll(template, QuestionPlaceholder, query)
}

// QuestionPlaceholder is replaced by the user query in fallback templates.
const QuestionPlaceholder = "%QUESTION%"

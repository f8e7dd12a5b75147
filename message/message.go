package message

import (
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// UserSpeaker is the display name used when rendering user turns.
const UserSpeaker = "User"

// Message represents a single message in a conversation.
// Speaker carries the display name of an assistant turn so a transcript can be
// rendered without encoding the name into Content.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Speaker   string         `json:"speaker,omitempty"`
	Content   string         `json:"content"`
	ToolCalls []ToolCall     `json:"tool_calls,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolCall is a tool invocation requested by the model. An empty Name is kept
// so the caller can treat it as an unknown tool.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	msg := &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
	if role == RoleUser {
		msg.Speaker = UserSpeaker
	}
	return msg
}

// NewAgentMessage creates an assistant message attributed to the named agent.
func NewAgentMessage(speaker, content string) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.Speaker = speaker
	return msg
}

// Render formats the message as "<Speaker>: <Content>".
func (m *Message) Render() string {
	speaker := m.Speaker
	if speaker == "" {
		speaker = string(m.Role)
	}
	return speaker + ": " + m.Content
}

// Clone creates a deep copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	if msg.Metadata != nil {
		cloned.Metadata = make(map[string]any, len(msg.Metadata))
		for k, v := range msg.Metadata {
			cloned.Metadata[k] = v
		}
	}
	if len(msg.ToolCalls) > 0 {
		cloned.ToolCalls = make([]ToolCall, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			cloned.ToolCalls[i] = cloneToolCall(tc)
		}
	}
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

func cloneToolCall(call ToolCall) ToolCall {
	cloned := ToolCall{ID: call.ID, Name: call.Name}
	if call.Args != nil {
		cloned.Args = make(map[string]any, len(call.Args))
		for k, v := range call.Args {
			cloned.Args[k] = v
		}
	}
	return cloned
}

// NewToolCallMessage creates a message with tool calls
func NewToolCallMessage(toolCalls []ToolCall) *Message {
	msg := NewMessage(RoleAssistant, "")
	msg.ToolCalls = toolCalls
	return msg
}

func generateID() string {
	return "msg_" + uuid.NewString()
}

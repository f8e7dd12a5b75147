package message

import (
	"testing"
)

func TestNewMessage(t *testing.T) {
	msg := NewMessage(RoleUser, "Hello, world!")

	if msg.Role != RoleUser {
		t.Errorf("Expected role %s, got %s", RoleUser, msg.Role)
	}
	if msg.Content != "Hello, world!" {
		t.Errorf("Expected content 'Hello, world!', got '%s'", msg.Content)
	}
	if msg.Speaker != UserSpeaker {
		t.Errorf("Expected speaker %s, got %s", UserSpeaker, msg.Speaker)
	}
	if msg.ID == "" {
		t.Error("Expected non-empty ID")
	}
	if msg.CreatedAt.IsZero() {
		t.Error("Expected non-zero created time")
	}
}

func TestNewMessageUniqueIDs(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewMessage(RoleUser, "x").ID
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{"user", NewMessage(RoleUser, "hi"), "User: hi"},
		{"agent", NewAgentMessage("Billing Agent", "hello"), "Billing Agent: hello"},
		{"agent named like user", NewAgentMessage("User: x", "hello"), "User: x: hello"},
		{"system without speaker", NewMessage(RoleSystem, "rules"), "system: rules"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Render(); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewToolCallMessage(t *testing.T) {
	toolCalls := []ToolCall{
		{ID: "call1", Name: "tool1", Args: map[string]any{"arg1": "value1"}},
	}

	msg := NewToolCallMessage(toolCalls)

	if msg.Role != RoleAssistant {
		t.Errorf("Expected role %s, got %s", RoleAssistant, msg.Role)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].Name != "tool1" {
		t.Errorf("Expected tool name 'tool1', got '%s'", msg.ToolCalls[0].Name)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewToolCallMessage([]ToolCall{{ID: "c", Name: "n", Args: map[string]any{"k": "v"}}})
	orig.Metadata["m"] = 1

	cloned := Clone(orig)
	cloned.ToolCalls[0].Args["k"] = "changed"
	cloned.Metadata["m"] = 2

	if orig.ToolCalls[0].Args["k"] != "v" {
		t.Error("tool call args were shared with the clone")
	}
	if orig.Metadata["m"] != 1 {
		t.Error("metadata was shared with the clone")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}

package billing

import (
	"strings"

	"github.com/sweetpotato0/ai-dispatch/message"
)

// DirectResponse names the pseudo-tool used when the model answers in plain text.
const DirectResponse = "direct_response"

// Decision is the single action the model chose for a turn.
type Decision struct {
	Tool    string
	Args    map[string]any
	Content string
}

// decide extracts the first tool call, or plain content as a direct response.
// It reports false when the reply carries neither.
func decide(reply *message.Message) (Decision, bool) {
	if reply == nil {
		return Decision{}, false
	}
	if len(reply.ToolCalls) > 0 {
		call := reply.ToolCalls[0]
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		return Decision{Tool: call.Name, Args: args}, true
	}
	if strings.TrimSpace(reply.Content) != "" {
		return Decision{Tool: DirectResponse, Content: reply.Content}, true
	}
	return Decision{}, false
}

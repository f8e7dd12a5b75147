package memory

import (
	"sync"

	"github.com/sweetpotato0/ai-dispatch/message"
)

// DefaultCapacity is the number of messages an agent keeps for short-term context.
const DefaultCapacity = 15

// Memory is a bounded, insertion-ordered conversation log.
// When an append pushes the log past its capacity the oldest entries are evicted.
type Memory struct {
	mu       sync.RWMutex
	messages []*message.Message
	capacity int
}

// New creates a memory holding at most DefaultCapacity messages.
func New() *Memory {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity creates a memory with the given capacity.
// Non-positive values fall back to DefaultCapacity.
func NewWithCapacity(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Memory{
		messages: make([]*message.Message, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a message and evicts from the front while over capacity.
func (m *Memory) Append(msg *message.Message) {
	if msg == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if over := len(m.messages) - m.capacity; over > 0 {
		// copy down so the backing array does not grow without bound
		n := copy(m.messages, m.messages[over:])
		for i := n; i < len(m.messages); i++ {
			m.messages[i] = nil
		}
		m.messages = m.messages[:n]
	}
}

// AppendUser records a user turn.
func (m *Memory) AppendUser(text string) {
	m.Append(message.NewMessage(message.RoleUser, text))
}

// AppendAgent records a reply spoken by the named agent.
func (m *Memory) AppendAgent(speaker, text string) {
	m.Append(message.NewAgentMessage(speaker, text))
}

// Messages returns a copy of the log, oldest first.
func (m *Memory) Messages() []*message.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return message.CloneMessages(m.messages)
}

// Last returns the newest message or nil if empty.
func (m *Memory) Last() *message.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.messages) == 0 {
		return nil
	}
	return message.Clone(m.messages[len(m.messages)-1])
}

// Transcript renders the log as "User: ..." / "<Agent>: ..." lines.
func (m *Memory) Transcript() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, msg.Render())
	}
	return lines
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Capacity returns the maximum number of stored messages.
func (m *Memory) Capacity() int {
	return m.capacity
}

// Clear removes all messages.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = m.messages[:0]
}

package chat

import (
	"github.com/michaelbrown/rentdesk/internal/llm"
)

// Conversation is the ordered, append-only message log for one session.
// Exactly one Orchestrator mutates it; turns never run concurrently.
type Conversation struct {
	messages []llm.Message
}

// Append adds a message to the end of the log.
func (c *Conversation) Append(msg llm.Message) {
	c.messages = append(c.messages, msg)
}

// ExtendContent appends delta text to the message at index i. The in-flight
// assistant message grows in place rather than being re-appended.
func (c *Conversation) ExtendContent(i int, delta string) {
	c.messages[i].Content += delta
}

// SetToolCalls attaches finalized tool calls to the message at index i.
func (c *Conversation) SetToolCalls(i int, calls []llm.ToolCall) {
	c.messages[i].ToolCalls = calls
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// TruncateTo discards every message at or past index n. Used to roll a
// failed turn back to the state it started from.
func (c *Conversation) TruncateTo(n int) {
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

// Reset clears the log entirely. Resets are always full, never partial.
func (c *Conversation) Reset() {
	c.messages = nil
}

package tag

import (
	"fmt"
	"strings"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

// Conversation is the ordered, append-only turn sequence of one request. It is not safe for
// concurrent use.
type Conversation struct {
	turns       []llm.Message
	instruction bool
}

// NewConversation copies history so the caller's slice is never mutated.
func NewConversation(history []llm.Message) *Conversation {
	turns := make([]llm.Message, len(history), len(history)+8)
	copy(turns, history)
	return &Conversation{turns: turns}
}

func (c *Conversation) Append(role llm.Role, content string) {
	c.turns = append(c.turns, llm.Message{Role: role, Content: content})
}

// AppendInstruction appends a generation instruction as a developer turn.
func (c *Conversation) AppendInstruction(content string) {
	c.Append(llm.RoleDeveloper, content)
	c.instruction = true
}

// HasInstruction reports whether a generation instruction was appended during this request.
func (c *Conversation) HasInstruction() bool {
	return c.instruction
}

// Turns returns a copy of the turns.
func (c *Conversation) Turns() []llm.Message {
	out := make([]llm.Message, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	return len(c.turns)
}

// Transcript renders the user and assistant turns for inclusion in a prompt. Long assistant turns
// are truncated.
func (c *Conversation) Transcript() string {
	var sb strings.Builder
	for _, m := range c.turns {
		switch m.Role {
		case llm.RoleUser:
			sb.WriteString(fmt.Sprintf("User: %s\n", m.Content))
		case llm.RoleAssistant:
			sb.WriteString(fmt.Sprintf("Assistant: %s\n", truncate(m.Content, 500)))
		}
	}
	if sb.Len() == 0 {
		return "(no previous conversation)"
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// Package llm defines the language-model collaborator used by the agent packages and provides
// Anthropic and Ollama implementations.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleDeveloper Role = "developer"
	RoleSystem    Role = "system"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleDeveloper, RoleSystem:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %q", s)
	}
}

// Message is a single turn in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewMessage returns a validated message.
func NewMessage(role Role, content string) (Message, error) {
	r, err := ParseRole(string(role))
	if err != nil {
		return Message{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Message{}, fmt.Errorf("%s message content is empty", r)
	}
	return Message{Role: r, Content: content}, nil
}

// Request is a single model call.
type Request struct {
	Messages []Message

	// Schema constrains the response to a JSON document. Optional.
	Schema *ResponseSchema

	// Model overrides the client's default model. Optional.
	Model string
}

// Response holds the text returned by the model and the provider's identifier for the call.
type Response struct {
	Text   string
	CallID string
}

// Client is the interface for interacting with an LLM.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

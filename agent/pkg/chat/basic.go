package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

// ApologyMessage is returned when the model call for a basic reply fails.
const ApologyMessage = "I'm sorry, I encountered an error processing your question. Could you please try again?"

type BasicConfig struct {
	Logger *slog.Logger
	LLM    llm.Client
	Model  string

	// SystemPrompt defaults to the embedded BASIC.md.
	SystemPrompt string
}

func (c *BasicConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.LLM == nil {
		return errors.New("llm client is required")
	}
	if c.SystemPrompt == "" {
		prompt, err := loadPrompt("BASIC.md")
		if err != nil {
			return err
		}
		c.SystemPrompt = prompt
	}
	return nil
}

// BasicRetriever forwards the conversation to the model without querying any data.
type BasicRetriever struct {
	log *slog.Logger
	cfg BasicConfig
}

func NewBasicRetriever(cfg BasicConfig) (*BasicRetriever, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BasicRetriever{log: cfg.Logger, cfg: cfg}, nil
}

func (r *BasicRetriever) Retrieve(ctx context.Context, question string, history []llm.Message) (*Reply, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: r.cfg.SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	resp, err := r.cfg.LLM.Complete(ctx, llm.Request{Messages: messages, Model: r.cfg.Model})
	if err != nil {
		r.log.Error("chat: basic retriever failed", "error", err)
		return &Reply{Text: ApologyMessage, Route: RouteBasic}, nil
	}
	r.log.Debug("chat: basic retriever answered", "callID", resp.CallID)

	return &Reply{
		Text:         resp.Text,
		Route:        RouteBasic,
		CompletionID: resp.CallID,
	}, nil
}

package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 4096

type AnthropicConfig struct {
	Logger    *slog.Logger
	APIKey    string
	BaseURL   string // optional
	Model     anthropic.Model
	MaxTokens int64
}

func (c *AnthropicConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.APIKey == "" {
		return errors.New("anthropic API key is required")
	}
	if c.Model == "" {
		c.Model = anthropic.ModelClaudeHaiku4_5_20251001
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return nil
}

// AnthropicClient implements Client using the Anthropic Messages API.
type AnthropicClient struct {
	log    *slog.Logger
	cfg    AnthropicConfig
	client anthropic.Client
}

func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicClient{
		log:    cfg.Logger,
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
	}, nil
}

// Complete sends the conversation to Claude. When a schema is supplied the model is forced to call
// a single tool whose input schema is the response schema, and the tool input is returned as the
// response text.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	system, msgs := toAnthropicMessages(req.Messages)
	if len(msgs) == 0 {
		return Response{}, errors.New("at least one non-system message is required")
	}

	model := c.cfg.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Schema != nil {
		tool := anthropic.ToolParam{
			Name:        req.Schema.Name,
			Description: anthropic.Opt(req.Schema.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: req.Schema.Properties(),
				Required:   req.Schema.Required(),
			},
		}
		params.Tools = []anthropic.ToolUnionParam{{OfTool: &tool}}
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: req.Schema.Name},
		}
	}

	start := time.Now()
	c.log.Debug("anthropic: call starting", "model", model, "messages", len(msgs), "structured", req.Schema != nil)

	msg, err := c.client.Messages.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		c.log.Error("anthropic: call failed", "duration", duration, "error", err)
		return Response{}, fmt.Errorf("anthropic API error: %w", err)
	}
	c.log.Debug("anthropic: call completed", "duration", duration, "stopReason", msg.StopReason, "id", msg.ID)

	var text string
	for _, block := range msg.Content {
		switch block.Type {
		case "tool_use":
			if req.Schema != nil && block.Name == req.Schema.Name {
				return Response{Text: string(block.Input), CallID: msg.ID}, nil
			}
		case "text":
			if text == "" {
				text = block.Text
			}
		}
	}
	if text == "" {
		return Response{}, fmt.Errorf("no usable content in response %s", msg.ID)
	}
	return Response{Text: text, CallID: msg.ID}, nil
}

// toAnthropicMessages folds system turns into the system prompt, sends developer turns as user
// turns, and merges consecutive turns of the same role.
func toAnthropicMessages(messages []Message) (string, []anthropic.MessageParam) {
	var system []string
	type turn struct {
		role  Role
		texts []string
	}
	var turns []turn
	for _, m := range messages {
		role := m.Role
		switch role {
		case RoleSystem:
			system = append(system, m.Content)
			continue
		case RoleDeveloper:
			role = RoleUser
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].texts = append(turns[n-1].texts, m.Content)
			continue
		}
		turns = append(turns, turn{role: role, texts: []string{m.Content}})
	}

	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(strings.Join(t.texts, "\n\n"))
		if t.role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return strings.Join(system, "\n\n"), out
}

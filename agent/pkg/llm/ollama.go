package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OllamaConfig struct {
	Logger     *slog.Logger
	BaseURL    string
	Model      string
	MaxTokens  int64
	HTTPClient *http.Client
}

func (c *OllamaConfig) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.BaseURL == "" {
		return errors.New("ollama base URL is required")
	}
	if c.Model == "" {
		return errors.New("ollama model is required")
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return nil
}

// OllamaClient implements Client for a local Ollama server.
type OllamaClient struct {
	log *slog.Logger
	cfg OllamaConfig
}

func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &OllamaClient{log: cfg.Logger, cfg: cfg}, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Complete sends the conversation to Ollama's chat endpoint. A response schema is passed through as
// the structured-output format.
func (c *OllamaClient) Complete(ctx context.Context, req Request) (Response, error) {
	model := c.cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	body := ollamaChatRequest{
		Model:    model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   false,
		Options:  map[string]any{"num_predict": c.cfg.MaxTokens},
	}
	if req.Schema != nil {
		format, err := req.Schema.JSON()
		if err != nil {
			return Response{}, err
		}
		body.Format = format
	}

	start := time.Now()
	out, err := c.chat(ctx, body)
	if err != nil {
		c.log.Error("ollama: call failed", "duration", time.Since(start), "error", err)
		return Response{}, err
	}
	c.log.Debug("ollama: call completed", "duration", time.Since(start), "model", out.Model)

	return Response{
		Text:   out.Message.Content,
		CallID: "ollama-" + uuid.NewString(),
	}, nil
}

func (c *OllamaClient) chat(ctx context.Context, req ollamaChatRequest) (ollamaChatResponse, error) {
	var out ollamaChatResponse

	b, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("json marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/chat", bytes.NewReader(b))
	if err != nil {
		return out, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return out, fmt.Errorf("ollama chat http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Ollama may still send newline-delimited chunks with stream=false.
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return out, fmt.Errorf("stream decode: %w (line=%q)", err, string(line))
		}
		if chunk.Error != "" {
			return out, fmt.Errorf("ollama error: %s", chunk.Error)
		}
		out.Message.Content += chunk.Message.Content
		if chunk.Message.Role != "" {
			out.Message.Role = chunk.Message.Role
		}
		if chunk.Model != "" {
			out.Model = chunk.Model
		}
		out.Done = chunk.Done
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("stream read: %w", err)
	}
	return out, nil
}

func toOllamaMessages(messages []Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		role := string(m.Role)
		if m.Role == RoleDeveloper {
			role = string(RoleSystem)
		}
		out = append(out, ollamaMessage{Role: role, Content: m.Content})
	}
	return out
}

package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

type capturedAnthropicRequest struct {
	Model    string `json:"model"`
	System   []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	Tools []struct {
		Name string `json:"name"`
	} `json:"tools"`
	ToolChoice struct {
		Type string `json:"type"`
		Name string `json:"name"`
	} `json:"tool_choice"`
}

func newFakeAnthropic(t *testing.T, content []map[string]any, mu *sync.Mutex, captured *capturedAnthropicRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		if captured != nil {
			mu.Lock()
			assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
			mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_test_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "claude-haiku-4-5-20251001",
			"content":       content,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLLM_Anthropic_ConfigValidate(t *testing.T) {
	t.Parallel()

	_, err := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: "k"})
	require.EqualError(t, err, "logger is required")

	_, err = llm.NewAnthropicClient(llm.AnthropicConfig{Logger: logger})
	require.Error(t, err)
}

func TestLLM_Anthropic_StructuredOutput(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var captured capturedAnthropicRequest
	srv := newFakeAnthropic(t, []map[string]any{
		{"type": "tool_use", "id": "toolu_1", "name": "answer", "input": map[string]any{"answer": "12.4 miles", "confidence": "HIGH"}},
	}, &mu, &captured)

	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{Logger: logger, APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	schema := llm.MustSchemaFor[testAnswer]("answer", "An answer")
	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You answer running questions."},
			{Role: llm.RoleUser, Content: "How far did I run?"},
			{Role: llm.RoleDeveloper, Content: "Answer briefly."},
		},
		Schema: schema,
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_test_1", resp.CallID)
	assert.JSONEq(t, `{"answer":"12.4 miles","confidence":"HIGH"}`, resp.Text)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, captured.System, 1)
	assert.Equal(t, "You answer running questions.", captured.System[0].Text)
	require.Len(t, captured.Messages, 1, "user and developer turns should be merged")
	assert.Equal(t, "user", captured.Messages[0].Role)
	require.Len(t, captured.Messages[0].Content, 1)
	assert.Equal(t, "How far did I run?\n\nAnswer briefly.", captured.Messages[0].Content[0].Text)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "answer", captured.Tools[0].Name)
	assert.Equal(t, "tool", captured.ToolChoice.Type)
	assert.Equal(t, "answer", captured.ToolChoice.Name)
}

func TestLLM_Anthropic_TextFallback(t *testing.T) {
	t.Parallel()

	srv := newFakeAnthropic(t, []map[string]any{
		{"type": "text", "text": "SELECT 1"},
	}, nil, nil)

	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{Logger: logger, APIKey: "test", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", resp.Text)
}

func TestLLM_Anthropic_RequiresNonSystemMessage(t *testing.T) {
	t.Parallel()

	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{Logger: logger, APIKey: "test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: llm.RoleSystem, Content: "only system"}},
	})
	require.Error(t, err)
}

package app

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridelake/stridelake/agent/pkg/llm"
	"github.com/stridelake/stridelake/internal/config"
)

func TestApp_NewLLM(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("ollama with default model", func(t *testing.T) {
		t.Parallel()
		c, err := NewLLM(log, &config.Config{LLMProvider: config.ProviderOllama, OllamaURL: "http://localhost:11434"})
		require.NoError(t, err)
		assert.IsType(t, &llm.OllamaClient{}, c)
	})

	t.Run("anthropic", func(t *testing.T) {
		t.Parallel()
		c, err := NewLLM(log, &config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKey: "sk-test"})
		require.NoError(t, err)
		assert.IsType(t, &llm.AnthropicClient{}, c)
	})

	t.Run("anthropic requires a key", func(t *testing.T) {
		t.Parallel()
		_, err := NewLLM(log, &config.Config{LLMProvider: config.ProviderAnthropic})
		require.EqualError(t, err, "anthropic API key is required")
	})

	t.Run("unknown provider", func(t *testing.T) {
		t.Parallel()
		_, err := NewLLM(log, &config.Config{LLMProvider: "openai"})
		require.Error(t, err)
	})
}

// Package chat routes user questions to the right retriever: data questions go to the TAG engine,
// everything else is answered directly by the language model.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/stridelake/stridelake/agent/pkg/chat/prompts"
	"github.com/stridelake/stridelake/agent/pkg/llm"
)

// Route identifies how a question was answered.
type Route string

const (
	RouteTAG   Route = "tag"
	RouteBasic Route = "basic"
)

// Reply is the answer to a question plus the metadata surfaced to API and CLI callers.
type Reply struct {
	Text  string
	Route Route

	Classification Classification

	CompletionID     string
	ExecutedQuery    string
	QueryConfidence  string
	AnswerConfidence string
	Outcome          string

	Columns []string
	Rows    [][]any
}

// Retriever answers a question given the prior conversation.
type Retriever interface {
	Retrieve(ctx context.Context, question string, history []llm.Message) (*Reply, error)
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.PromptsFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

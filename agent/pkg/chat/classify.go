package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

// Classification represents the type of question being asked.
type Classification string

const (
	ClassificationDataAnalysis   Classification = "data_analysis"
	ClassificationConversational Classification = "conversational"
	ClassificationOutOfScope     Classification = "out_of_scope"
)

// ClassifyResult holds the result of question classification.
type ClassifyResult struct {
	Classification Classification `json:"classification" jsonschema:"How the question should be handled."`
	Reasoning      string         `json:"reasoning" jsonschema:"One short sentence explaining the choice."`
}

var classifySchema = llm.MustSchemaFor[ClassifyResult](
	"classification", "Routing decision for a user question.",
).WithEnum("classification",
	string(ClassificationDataAnalysis), string(ClassificationConversational), string(ClassificationOutOfScope))

// classify determines how a question should be handled. Failures default to data_analysis.
func (r *Router) classify(ctx context.Context, question string, history []llm.Message) *ClassifyResult {
	var userPrompt strings.Builder
	if len(history) > 0 {
		userPrompt.WriteString("Previous conversation:\n")
		for _, msg := range history {
			switch msg.Role {
			case llm.RoleUser:
				userPrompt.WriteString(fmt.Sprintf("User: %s\n", msg.Content))
			case llm.RoleAssistant:
				content := msg.Content
				if len(content) > 500 {
					content = content[:500] + "..."
				}
				userPrompt.WriteString(fmt.Sprintf("Assistant: %s\n", content))
			}
		}
		userPrompt.WriteString("\n")
	}
	userPrompt.WriteString(fmt.Sprintf("Question to classify: %s", question))

	resp, err := r.cfg.LLM.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: r.classifyPrompt},
			{Role: llm.RoleUser, Content: userPrompt.String()},
		},
		Schema: classifySchema,
		Model:  r.cfg.Model,
	})
	if err != nil {
		r.log.Warn("chat: classify failed, defaulting to data_analysis", "error", err)
		return &ClassifyResult{
			Classification: ClassificationDataAnalysis,
			Reasoning:      "Classification failed, defaulting to data analysis",
		}
	}

	result, err := parseClassifyResponse(resp.Text)
	if err != nil {
		r.log.Info("chat: classify parse failed, defaulting to data_analysis", "error", err)
		return &ClassifyResult{
			Classification: ClassificationDataAnalysis,
			Reasoning:      "Classification failed, defaulting to data analysis",
		}
	}
	return result
}

func parseClassifyResponse(response string) (*ClassifyResult, error) {
	doc := llm.ExtractJSON(response)
	if doc == "" {
		return nil, errors.New("no JSON found in response")
	}

	var result ClassifyResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	switch result.Classification {
	case ClassificationDataAnalysis, ClassificationConversational, ClassificationOutOfScope:
	default:
		return nil, fmt.Errorf("invalid classification: %s", result.Classification)
	}
	return &result, nil
}

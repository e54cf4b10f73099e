package tag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

// generateResponse is the output contract sent to the model. All keys are required.
type generateResponse struct {
	Query      string `json:"query" jsonschema:"The generated SQL query."`
	Confidence string `json:"confidence" jsonschema:"Confidence level of the generated query."`
	FollowUps  string `json:"follow_ups" jsonschema:"Clarifying question if confidence is LOW."`
}

// parsedGenerateResponse is what is accepted back. An abstaining model may omit the query.
type parsedGenerateResponse struct {
	Query      string `json:"query,omitempty"`
	Confidence string `json:"confidence"`
	FollowUps  string `json:"follow_ups,omitempty"`
}

var (
	generateSchema = llm.MustSchemaFor[generateResponse](
		"generated_query", "The output of the SQL query generation process.",
	).WithEnum("confidence", string(ConfidenceLow), string(ConfidenceMedium), string(ConfidenceHigh))

	generateParseSchema = llm.MustSchemaFor[parsedGenerateResponse](
		"generated_query", "The output of the SQL query generation process.",
	).WithEnum("confidence", string(ConfidenceLow), string(ConfidenceMedium), string(ConfidenceHigh))
)

// buildInstruction appends the prior error (if any) and the generation instruction to the
// conversation. The full-schema prompt is used only for the first instruction of the request.
func (r *Retriever) buildInstruction(ctx context.Context, conv *Conversation, question string, state AttemptState) error {
	if state.LastError != "" {
		conv.Append(llm.RoleDeveloper, state.LastError)
	}

	if conv.HasInstruction() {
		conv.AppendInstruction(buildGeneratePrompt(r.cfg.Prompts.GenerateFollowUp, "", conv.Transcript(), question))
		return nil
	}

	schema, err := r.cfg.Schema.Describe(ctx)
	if err != nil {
		return fmt.Errorf("failed to describe schema: %w", err)
	}
	conv.AppendInstruction(buildGeneratePrompt(r.cfg.Prompts.Generate, schema, conv.Transcript(), question))
	return nil
}

// Generate calls the model with the current conversation and parses its query. A LOW confidence
// result is returned normally with FollowUp populated.
func (r *Retriever) Generate(ctx context.Context, conv *Conversation) (GeneratedQuery, string, error) {
	start := r.cfg.Clock.Now()
	resp, err := r.cfg.LLM.Complete(ctx, llm.Request{
		Messages: conv.Turns(),
		Schema:   generateSchema,
		Model:    r.cfg.Model,
	})
	ModelCallDuration.WithLabelValues(stageGenerate).Observe(r.cfg.Clock.Since(start).Seconds())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return GeneratedQuery{}, "", ctxErr
		}
		return GeneratedQuery{}, "", &GenerationFailure{Content: "model call failed", Err: err}
	}

	gq, err := parseGenerateResponse(resp.Text)
	if err != nil {
		return GeneratedQuery{}, resp.CallID, &GenerationFailure{Content: resp.Text, Err: err}
	}
	return gq, resp.CallID, nil
}

func parseGenerateResponse(text string) (GeneratedQuery, error) {
	doc := llm.ExtractJSON(text)
	if doc == "" {
		return GeneratedQuery{}, errors.New("response does not contain a JSON object")
	}
	if err := generateParseSchema.Validate([]byte(doc)); err != nil {
		return GeneratedQuery{}, err
	}

	var parsed parsedGenerateResponse
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return GeneratedQuery{}, fmt.Errorf("failed to decode response: %w", err)
	}
	confidence, err := ParseConfidence(parsed.Confidence)
	if err != nil {
		return GeneratedQuery{}, err
	}

	gq := GeneratedQuery{
		Query:      parsed.Query,
		Confidence: confidence,
		FollowUp:   parsed.FollowUps,
	}
	if confidence == ConfidenceLow {
		if gq.FollowUp == "" {
			gq.FollowUp = DefaultFollowUp
		}
		return gq, nil
	}
	if CleanQuery(gq.Query) == "" {
		return GeneratedQuery{}, fmt.Errorf("no query generated at %s confidence", confidence)
	}
	return gq, nil
}

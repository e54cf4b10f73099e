package tag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

type synthesizeResponse struct {
	Answer     string `json:"answer" jsonschema:"The natural-language answer."`
	Confidence string `json:"confidence" jsonschema:"Confidence level of the answer."`
}

var synthesizeSchema = llm.MustSchemaFor[synthesizeResponse](
	"answer", "A natural-language answer derived from query results.",
).WithEnum("confidence", string(ConfidenceLow), string(ConfidenceMedium), string(ConfidenceHigh))

// Synthesize turns query results into a natural-language answer. A model call error is returned;
// an unparseable response degrades to the raw text at MEDIUM confidence.
func (r *Retriever) Synthesize(ctx context.Context, conv *Conversation, qr *QueryResult) (*AnswerPayload, error) {
	results := FormatRows(qr.Columns, qr.Rows, r.cfg.MaxResultRows)
	conv.Append(llm.RoleDeveloper, buildSynthesizePrompt(r.cfg.Prompts.Synthesize, results))

	start := r.cfg.Clock.Now()
	resp, err := r.cfg.LLM.Complete(ctx, llm.Request{
		Messages: conv.Turns(),
		Schema:   synthesizeSchema,
		Model:    r.cfg.Model,
	})
	ModelCallDuration.WithLabelValues(stageSynthesize).Observe(r.cfg.Clock.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize answer: %w", err)
	}

	answer := &AnswerPayload{
		ExecutedQuery: qr.ExecutedQuery,
		CallID:        qr.CallID,
	}
	text, confidence, err := parseSynthesizeResponse(resp.Text)
	if err != nil {
		r.log.Warn("tag: failed to parse synthesized answer, using raw text", "error", err)
		answer.Text = resp.Text
		answer.Confidence = ConfidenceMedium
		return answer, nil
	}
	answer.Text = text
	answer.Confidence = confidence
	return answer, nil
}

func parseSynthesizeResponse(text string) (string, Confidence, error) {
	doc := llm.ExtractJSON(text)
	if doc == "" {
		return "", "", errors.New("response does not contain a JSON object")
	}
	if err := synthesizeSchema.Validate([]byte(doc)); err != nil {
		return "", "", err
	}
	var parsed synthesizeResponse
	if err := json.Unmarshal([]byte(doc), &parsed); err != nil {
		return "", "", err
	}
	confidence, err := ParseConfidence(parsed.Confidence)
	if err != nil {
		return "", "", err
	}
	return parsed.Answer, confidence, nil
}

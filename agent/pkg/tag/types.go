package tag

import (
	"fmt"
	"strings"
)

// Confidence is the model's self-assessed certainty in a generated query or answer.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

func ParseConfidence(s string) (Confidence, error) {
	switch c := Confidence(strings.ToUpper(strings.TrimSpace(s))); c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return c, nil
	default:
		return "", fmt.Errorf("invalid confidence level: %q", s)
	}
}

// GeneratedQuery is the parsed output of one generation attempt.
type GeneratedQuery struct {
	Query      string
	Confidence Confidence
	FollowUp   string
}

// Rows is the raw output of a query execution.
type Rows struct {
	Columns []string
	Values  [][]any
}

// QueryResult is a successful validation/execution pass.
type QueryResult struct {
	Columns       []string
	Rows          [][]any
	RowCount      int
	ExecutedQuery string
	CallID        string
	Confidence    Confidence
}

// AnswerPayload is the terminal artifact returned to the caller.
type AnswerPayload struct {
	Text          string
	Confidence    Confidence
	ExecutedQuery string
	CallID        string
}

// AttemptState is carried across attempts of a single request.
type AttemptState struct {
	Attempt   int
	LastError string
}

// Outcome is the terminal state of a request.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeAbstained Outcome = "abstained"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeFailed    Outcome = "failed"
)

// Result is returned by ProcessQuestion. Exactly one of Answer and FollowUp is set.
type Result struct {
	Outcome  Outcome
	Answer   *AnswerPayload
	FollowUp string

	// Query is set when a query executed successfully, even if synthesis later failed.
	Query *QueryResult

	Attempts int
}

// Text returns the user-facing text of the result.
func (r *Result) Text() string {
	if r.Answer != nil {
		return r.Answer.Text
	}
	return r.FollowUp
}

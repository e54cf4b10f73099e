package chat

import (
	"context"

	"github.com/stridelake/stridelake/agent/pkg/llm"
	"github.com/stridelake/stridelake/agent/pkg/tag"
)

// QuestionProcessor is implemented by *tag.Retriever.
type QuestionProcessor interface {
	ProcessQuestion(ctx context.Context, question string, history []llm.Message) (*tag.Result, error)
}

// TAGRetriever adapts the TAG engine to the Retriever interface.
type TAGRetriever struct {
	engine QuestionProcessor
}

func NewTAGRetriever(engine QuestionProcessor) *TAGRetriever {
	return &TAGRetriever{engine: engine}
}

func (r *TAGRetriever) Retrieve(ctx context.Context, question string, history []llm.Message) (*Reply, error) {
	res, err := r.engine.ProcessQuestion(ctx, question, history)
	if err != nil {
		return nil, err
	}

	reply := &Reply{
		Text:    res.Text(),
		Route:   RouteTAG,
		Outcome: string(res.Outcome),
	}
	if res.Outcome == tag.OutcomeAbstained {
		reply.QueryConfidence = string(tag.ConfidenceLow)
	}
	if res.Answer != nil {
		reply.AnswerConfidence = string(res.Answer.Confidence)
		reply.ExecutedQuery = res.Answer.ExecutedQuery
		reply.CompletionID = res.Answer.CallID
	}
	if res.Query != nil && res.Outcome == tag.OutcomeAnswered {
		reply.QueryConfidence = string(res.Query.Confidence)
		reply.Columns = res.Query.Columns
		reply.Rows = res.Query.Rows
	}
	return reply, nil
}

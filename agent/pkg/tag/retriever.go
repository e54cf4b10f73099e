// Package tag implements text-to-query-to-answer retrieval: a question is turned into a SQL query by
// a language model, the query is executed against the data store with self-correcting retries, and
// the rows are synthesized into a natural-language answer.
package tag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/stridelake/stridelake/agent/pkg/llm"
)

const (
	defaultMaxAttempts    = 5
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 10 * time.Second
	defaultMaxResultRows  = 100
)

type Config struct {
	Logger  *slog.Logger
	LLM     llm.Client
	Store   SessionProvider
	Schema  SchemaDescriber
	Prompts *Prompts

	// Model overrides the client's default model. Optional.
	Model string

	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxResultRows  int

	Clock clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.LLM == nil {
		return errors.New("llm client is required")
	}
	if c.Store == nil {
		return errors.New("session provider is required")
	}
	if c.Schema == nil {
		return errors.New("schema describer is required")
	}
	if c.Prompts == nil {
		prompts, err := LoadPrompts()
		if err != nil {
			return err
		}
		c.Prompts = prompts
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = defaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}
	if c.MaxBackoff < c.InitialBackoff {
		return errors.New("max backoff must be greater than or equal to initial backoff")
	}
	if c.MaxResultRows <= 0 {
		c.MaxResultRows = defaultMaxResultRows
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Retriever answers questions against the data store. It holds no per-request state and is safe
// for concurrent use.
type Retriever struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Retriever, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Retriever{log: cfg.Logger, cfg: cfg}, nil
}

// attemptOutcome is the result of one successful pass through generation and, unless the model
// abstained, execution.
type attemptOutcome struct {
	query    *QueryResult
	followUp string
}

// ProcessQuestion answers a question given the prior conversation. Every terminal state is reported
// through the Result; an error is returned only for an empty question.
func (r *Retriever) ProcessQuestion(ctx context.Context, question string, history []llm.Message) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	conv := NewConversation(history)
	conv.Append(llm.RoleUser, question)
	r.log.Debug("tag: processing question", "turns", conv.Len(), "max_attempts", r.cfg.MaxAttempts)

	state := AttemptState{}
	operation := func() (attemptOutcome, error) {
		state.Attempt++
		out, err := r.attempt(ctx, conv, question, state)
		if err == nil {
			return out, nil
		}
		if f, ok := AsFailure(err); ok {
			FailuresTotal.WithLabelValues(f.Kind()).Inc()
			r.log.Error("tag: attempt failed", "attempt", state.Attempt, "kind", f.Kind(), "error", err)
			state.LastError = f.Error()
			return attemptOutcome{}, err
		}
		return attemptOutcome{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialBackoff
	b.MaxInterval = r.cfg.MaxBackoff
	b.RandomizationFactor = 0.5
	b.Multiplier = 2

	out, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			r.log.Info("tag: retrying query generation", "attempt", state.Attempt+1, "backoff", d)
		}),
	)
	if err != nil {
		if _, ok := AsFailure(err); ok {
			r.log.Error("tag: retry budget exhausted", "attempts", state.Attempt, "error", err)
			return r.finish(failedResult(OutcomeExhausted, state.Attempt, nil)), nil
		}
		r.log.Error("tag: request failed", "attempts", state.Attempt, "error", err)
		return r.finish(failedResult(OutcomeFailed, state.Attempt, nil)), nil
	}

	if out.query == nil {
		r.log.Info("tag: abstained", "attempts", state.Attempt, "followUp", out.followUp)
		return r.finish(&Result{Outcome: OutcomeAbstained, FollowUp: out.followUp, Attempts: state.Attempt}), nil
	}

	r.log.Debug("tag: query succeeded", "attempts", state.Attempt, "rows", out.query.RowCount)
	answer, err := r.Synthesize(ctx, conv, out.query)
	if err != nil {
		r.log.Error("tag: synthesis failed", "error", err)
		return r.finish(failedResult(OutcomeFailed, state.Attempt, out.query)), nil
	}
	return r.finish(&Result{
		Outcome:  OutcomeAnswered,
		Answer:   answer,
		Query:    out.query,
		Attempts: state.Attempt,
	}), nil
}

// attempt runs one generation and, unless the model abstains, one execution.
func (r *Retriever) attempt(ctx context.Context, conv *Conversation, question string, state AttemptState) (attemptOutcome, error) {
	if err := r.buildInstruction(ctx, conv, question, state); err != nil {
		return attemptOutcome{}, err
	}

	gq, callID, err := r.Generate(ctx, conv)
	if err != nil {
		return attemptOutcome{}, err
	}
	if gq.Confidence == ConfidenceLow {
		return attemptOutcome{followUp: gq.FollowUp}, nil
	}

	qr, err := r.Execute(ctx, gq, callID)
	if err != nil {
		return attemptOutcome{}, err
	}
	return attemptOutcome{query: qr}, nil
}

func (r *Retriever) finish(res *Result) *Result {
	RequestsTotal.WithLabelValues(string(res.Outcome)).Inc()
	AttemptsPerRequest.Observe(float64(res.Attempts))
	return res
}

func failedResult(outcome Outcome, attempts int, qr *QueryResult) *Result {
	return &Result{
		Outcome: outcome,
		Answer: &AnswerPayload{
			Text:       GenericFailureMessage,
			Confidence: ConfidenceLow,
		},
		Query:    qr,
		Attempts: attempts,
	}
}

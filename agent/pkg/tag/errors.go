package tag

import (
	"errors"
	"fmt"
)

const (
	// GenericFailureMessage is returned to the caller on exhaustion or any fatal error.
	GenericFailureMessage = "An error occurred during processing. Please try again."

	// DefaultFollowUp is used when the model abstains without a clarifying question.
	DefaultFollowUp = "Could you please elaborate on your question?"
)

var ErrEmptyQuestion = errors.New("question is empty")

// Failure is a transient failure that the retry loop recovers from. The set of implementations is
// closed: *GenerationFailure and *ExecutionFailure.
type Failure interface {
	error

	// Kind is a short label for logs and metrics.
	Kind() string

	failure()
}

// GenerationFailure is a model call error or a response that does not match the output contract.
type GenerationFailure struct {
	Content string
	Err     error
}

func (f *GenerationFailure) Error() string {
	return fmt.Sprintf("An error occurred during query generation: %s: %v\nPlease try again.\n", f.Content, f.Err)
}

func (f *GenerationFailure) Unwrap() error { return f.Err }
func (f *GenerationFailure) Kind() string  { return "generation" }
func (f *GenerationFailure) failure()      {}

// ExecutionFailure is a data-store error for a generated query. Its message is the corrective
// instruction fed into the next attempt.
type ExecutionFailure struct {
	Query string
	Err   error
}

func (f *ExecutionFailure) Error() string {
	return fmt.Sprintf("An error occurred while executing query [%s]: %v\nPlease generate a query to resolve this issue.\n", f.Query, f.Err)
}

func (f *ExecutionFailure) Unwrap() error { return f.Err }
func (f *ExecutionFailure) Kind() string  { return "execution" }
func (f *ExecutionFailure) failure()      {}

// AsFailure reports whether err is, or wraps, a transient failure.
func AsFailure(err error) (Failure, bool) {
	var gen *GenerationFailure
	if errors.As(err, &gen) {
		return gen, true
	}
	var exec *ExecutionFailure
	if errors.As(err, &exec) {
		return exec, true
	}
	return nil, false
}

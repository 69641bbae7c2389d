package common

import "fmt"

// Outcome tells callers whether a value came from the primary path.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// Result carries a value together with how it was obtained. A degraded
// result still has a usable Value; Cause records what went wrong on the
// primary path. A failed result has no usable value and Err is set.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Cause   error
	Err     error
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

func Degraded[T any](v T, cause error) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeDegraded, Cause: cause}
}

func Failed[T any](err error) Result[T] {
	return Result[T]{Outcome: OutcomeFailed, Err: err}
}

func (r Result[T]) IsOK() bool       { return r.Outcome == OutcomeOK }
func (r Result[T]) IsDegraded() bool { return r.Outcome == OutcomeDegraded }
func (r Result[T]) IsFailed() bool   { return r.Outcome == OutcomeFailed }

// Unwrap returns the value for ok and degraded results and the error for
// failed ones.
func (r Result[T]) Unwrap() (T, error) {
	if r.IsFailed() {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// Message is the user-facing status line for this result.
func (r Result[T]) Message(what string) string {
	switch r.Outcome {
	case OutcomeOK:
		return fmt.Sprintf("%s completed", what)
	case OutcomeDegraded:
		return fmt.Sprintf("%s completed with fallback content: %v", what, r.Cause)
	default:
		return fmt.Sprintf("%s failed: %v", what, r.Err)
	}
}

// MapResult converts the value of a result while keeping its outcome.
func MapResult[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.IsFailed() {
		return Failed[U](r.Err)
	}
	return Result[U]{Value: fn(r.Value), Outcome: r.Outcome, Cause: r.Cause}
}

// Package engine provides the result type and fallback algorithm shared by the
// speech-to-text, tutor and text-to-speech adapters.
//
// Every adapter calls its engines through Run, which tries an ordered list of
// engines and turns any error into a typed Failure. Engine errors never cross
// the adapter boundary as Go errors: callers inspect Result.Failure instead.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies why an engine did not produce a usable value.
type Kind string

const (
	// KindUnavailable is an engine process or network endpoint that could not
	// be reached or reported an error.
	KindUnavailable Kind = "unavailable"

	// KindTimeout is an engine call that outlived its per-call timeout.
	KindTimeout Kind = "timeout"

	// KindMalformedOutput is an engine that answered with something unusable,
	// e.g. an empty transcript or empty audio.
	KindMalformedOutput Kind = "malformed_output"
)

// ErrMalformedOutput marks engine output that could not be used.
// Wrap it with fmt.Errorf("...: %w", ErrMalformedOutput) to get KindMalformedOutput.
var ErrMalformedOutput = errors.New("malformed engine output")

// ErrNoEngines is recorded when an adapter is configured without engines.
var ErrNoEngines = errors.New("no engines configured")

// Named is implemented by every engine.
type Named interface {
	// Name is the engine identifier recorded in turn provenance
	// (e.g. "whisper-cli", "openai", "espeak").
	Name() string
}

// Checker is optionally implemented by engines that can report whether they
// are usable without doing real work.
type Checker interface {
	Check(ctx context.Context) error
}

// Failure is a typed engine failure.
type Failure struct {
	Kind   Kind
	Engine string
	Err    error
}

func (f *Failure) Error() string {
	if f.Engine == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s (%s): %v", f.Engine, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of invoking one adapter: a value plus the engine that
// produced it, or the failure of the last engine tried.
type Result[T any] struct {
	Value   T
	Engine  string
	Failure *Failure

	// Attempts holds every failure seen before the result was settled,
	// including the ones a later engine recovered from.
	Attempts []*Failure
}

// OK reports whether the result carries a value.
func (r Result[T]) OK() bool {
	return r.Failure == nil
}

// Succeeded builds a successful result.
func Succeeded[T any](engine string, value T) Result[T] {
	return Result[T]{Value: value, Engine: engine}
}

// Failed builds a failed result for the given engine and error.
func Failed[T any](engine string, err error) Result[T] {
	f := NewFailure(engine, err)
	return Result[T]{Failure: f, Attempts: []*Failure{f}}
}

// NewFailure classifies err into a Failure attributed to engine.
func NewFailure(engine string, err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: Classify(err), Engine: engine, Err: err}
}

// Classify maps an engine error onto a failure Kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrMalformedOutput):
		return KindMalformedOutput
	default:
		return KindUnavailable
	}
}

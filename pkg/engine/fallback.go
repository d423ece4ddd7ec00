package engine

import (
	"context"
	"log/slog"
	"time"
)

// Chain is an ordered list of engines for one capability. The first engine is
// the primary; each following engine is tried only after the previous one
// failed.
type Chain[E Named] struct {
	Engines []E

	// Timeout bounds every single engine call. Zero means no extra bound
	// beyond the caller's context.
	Timeout time.Duration

	// Stage names the pipeline stage in log records ("stt", "tts", ...).
	Stage string

	Logger *slog.Logger
}

// Run invokes call on each engine in order until one returns a value that
// passes validate. Errors, timeouts and rejected values move on to the next
// engine; the same engine is never retried. When every engine fails the
// result carries the last failure.
//
// validate may be nil.
func Run[E Named, T any](ctx context.Context, c Chain[E], call func(context.Context, E) (T, error), validate func(T) error) Result[T] {
	if len(c.Engines) == 0 {
		return Failed[T]("", ErrNoEngines)
	}

	var attempts []*Failure
	for i, eng := range c.Engines {
		value, err := invoke(ctx, c.Timeout, eng, call)
		if err == nil && validate != nil {
			err = validate(value)
		}

		if err == nil {
			if i > 0 && c.Logger != nil {
				c.Logger.Info("fallback engine succeeded",
					"stage", c.Stage,
					"engine", eng.Name(),
					"position", i,
				)
			}
			return Result[T]{Value: value, Engine: eng.Name(), Attempts: attempts}
		}

		f := NewFailure(eng.Name(), err)
		attempts = append(attempts, f)

		if c.Logger != nil {
			c.Logger.Warn("engine failed",
				"stage", c.Stage,
				"engine", eng.Name(),
				"kind", string(f.Kind),
				"error", f.Err,
			)
		}

		// The caller gave up; trying the next engine would fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	return Result[T]{Failure: attempts[len(attempts)-1], Attempts: attempts}
}

func invoke[E Named, T any](ctx context.Context, timeout time.Duration, eng E, call func(context.Context, E) (T, error)) (T, error) {
	if timeout <= 0 {
		return call(ctx, eng)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := call(callCtx, eng)
	if err != nil && callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		// Engines built on os/exec or net/http do not always wrap the
		// deadline error; make the timeout visible to Classify.
		return value, &Failure{Kind: KindTimeout, Engine: eng.Name(), Err: err}
	}
	return value, err
}

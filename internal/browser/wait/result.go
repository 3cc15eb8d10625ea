package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is wrapped by Result.Err when a condition was never met.
var ErrTimeout = errors.New("condition not met before timeout")

// Outcome classifies how a wait ended.
type Outcome int

const (
	Met Outcome = iota
	TimedOut
	Errored
)

func (o Outcome) String() string {
	switch o {
	case Met:
		return "met"
	case TimedOut:
		return "timed out"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of a single wait. A wait never fails on its own; the
// caller decides whether a non-met Result matters.
type Result struct {
	Condition string
	Outcome   Outcome
	// Cause is the terminal error for Errored, or the last check error seen
	// before a timeout (possibly nil).
	Cause   error
	Elapsed time.Duration
}

// OK reports whether the condition was met.
func (r Result) OK() bool { return r.Outcome == Met }

// Err converts the result into an error for callers that want strictness.
func (r Result) Err() error {
	switch r.Outcome {
	case Met:
		return nil
	case TimedOut:
		if r.Cause != nil {
			return fmt.Errorf("%s after %v: %w (last error: %v)", r.Condition, r.Elapsed.Round(time.Millisecond), ErrTimeout, r.Cause)
		}
		return fmt.Errorf("%s after %v: %w", r.Condition, r.Elapsed.Round(time.Millisecond), ErrTimeout)
	default:
		return fmt.Errorf("%s: %w", r.Condition, r.Cause)
	}
}

// Attempt records the outcome of a best-effort action that started at start.
// A deadline error counts as TimedOut, any other error as Errored.
func Attempt(name string, start time.Time, err error) Result {
	r := Result{Condition: name, Elapsed: time.Since(start)}
	switch {
	case err == nil:
		r.Outcome = Met
	case errors.Is(err, context.DeadlineExceeded):
		r.Outcome, r.Cause = TimedOut, err
	default:
		r.Outcome, r.Cause = Errored, err
	}
	return r
}

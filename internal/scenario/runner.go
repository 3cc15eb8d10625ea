// Package scenario runs named, ordered lists of steps against a browser
// session and records what happened to each step.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
)

// StepFunc is the body of a step. Hard assertions go through t.
type StepFunc func(ctx context.Context, t *T, s *session.Session)

// Step is one named unit of a spec.
type Step struct {
	Name string
	Run  StepFunc
}

// Hook runs before or after a spec's steps.
type Hook func(ctx context.Context, s *session.Session) error

// Spec is an ordered list of dependent steps. Each step's precondition is
// the state left behind by the one before it.
type Spec struct {
	Name       string
	Steps      []Step
	OnPrepare  Hook
	OnComplete Hook
}

// DisableImplicitWait is the usual OnPrepare hook: lookups return at once and
// all waiting is left to explicit conditions.
func DisableImplicitWait(ctx context.Context, s *session.Session) error {
	return s.Driver().SetImplicitWait(ctx, 0)
}

// Opener starts a fresh session for a spec.
type Opener func(ctx context.Context) (*session.Session, error)

// Options configure a Runner.
type Options struct {
	// FailFast skips the remaining steps of a spec after the first failure.
	FailFast bool
	// StepTimeout bounds each step and each hook.
	StepTimeout time.Duration
	// Patterns select specs by name with path.Match. Empty selects all.
	Patterns []string
	Logger   *zap.Logger
}

const (
	defaultStepTimeout = 2 * time.Minute
	// abandonGrace is how long a step may keep running after its context ends.
	abandonGrace = 2 * time.Second
)

// Runner executes specs sequentially.
type Runner struct {
	opts   Options
	logger *zap.Logger
	grace  time.Duration
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = defaultStepTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{opts: opts, logger: logger.Named("scenario"), grace: abandonGrace}
}

// Select returns the specs whose names match any pattern, in input order.
func (r *Runner) Select(specs []Spec) ([]Spec, error) {
	if len(r.opts.Patterns) == 0 {
		return specs, nil
	}
	for _, p := range r.opts.Patterns {
		if _, err := path.Match(p, ""); err != nil {
			return nil, fmt.Errorf("invalid spec pattern %q: %w", p, err)
		}
	}
	var out []Spec
	for _, spec := range specs {
		for _, p := range r.opts.Patterns {
			if ok, _ := path.Match(p, spec.Name); ok {
				out = append(out, spec)
				break
			}
		}
	}
	return out, nil
}

// Run opens a session per selected spec, runs it and closes the session.
// The returned error is reserved for problems with the run itself; spec and
// step failures are reported in the result.
func (r *Runner) Run(ctx context.Context, open Opener, specs []Spec) (RunResult, error) {
	selected, err := r.Select(specs)
	if err != nil {
		return RunResult{}, err
	}
	if len(selected) == 0 {
		return RunResult{}, errors.New("no specs match the configured patterns")
	}

	run := RunResult{ID: uuid.New().String(), Started: time.Now()}
	logger := r.logger.With(zap.String("run_id", run.ID))
	logger.Info("Starting run.", zap.Int("specs", len(selected)))

	for _, spec := range selected {
		if err := ctx.Err(); err != nil {
			run.Specs = append(run.Specs, SpecResult{Name: spec.Name, Started: time.Now(), Error: fmt.Sprintf("not run: %v", err)})
			continue
		}

		s, err := open(ctx)
		if err != nil {
			logger.Error("Failed to open session.", zap.String("spec", spec.Name), zap.Error(err))
			run.Specs = append(run.Specs, SpecResult{Name: spec.Name, Started: time.Now(), Error: fmt.Sprintf("failed to open session: %v", err)})
			continue
		}

		res := r.RunSpec(ctx, s, spec)

		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.StepTimeout)
		if err := r.closeSession(closeCtx, s); err != nil {
			logger.Warn("Failed to close session.", zap.String("spec", spec.Name), zap.Error(err))
			res.Error = joinMessages(res.Error, err.Error())
		}
		cancel()

		run.Specs = append(run.Specs, res)
	}

	run.Duration = time.Since(run.Started)
	logger.Info("Run finished.", zap.Bool("failed", run.Failed()), zap.Duration("duration", run.Duration))
	return run, nil
}

// RunSpec runs spec's hooks and steps against s. OnComplete always runs.
func (r *Runner) RunSpec(ctx context.Context, s *session.Session, spec Spec) SpecResult {
	res := SpecResult{Name: spec.Name, Browser: s.BrowserName(), SessionID: s.ID(), Started: time.Now()}
	logger := s.Logger().With(zap.String("spec", spec.Name))
	logger.Info("Running spec.", zap.Int("steps", len(spec.Steps)))

	stop := false
	if spec.OnPrepare != nil {
		if err := r.hook(ctx, s, spec.OnPrepare); err != nil {
			logger.Error("OnPrepare failed.", zap.Error(err))
			res.Error = fmt.Sprintf("OnPrepare: %v", err)
			stop = true
		}
	}

	for _, step := range spec.Steps {
		if stop || ctx.Err() != nil {
			res.Steps = append(res.Steps, StepResult{Name: step.Name, Status: Skipped})
			continue
		}
		sr, abandoned := r.runStep(ctx, s, step)
		res.Steps = append(res.Steps, sr)
		if sr.Status == Failed {
			logger.Warn("Step failed.", zap.String("step", step.Name), zap.String("failure", sr.Failure))
			// An abandoned step may still be driving the session.
			stop = r.opts.FailFast || abandoned
		} else {
			logger.Debug("Step passed.", zap.String("step", step.Name), zap.Duration("duration", sr.Duration))
		}
	}

	if spec.OnComplete != nil {
		if err := r.hook(context.WithoutCancel(ctx), s, spec.OnComplete); err != nil {
			logger.Error("OnComplete failed.", zap.Error(err))
			res.Error = joinMessages(res.Error, fmt.Sprintf("OnComplete: %v", err))
		}
	}

	res.Duration = time.Since(res.Started)
	logger.Info("Spec finished.",
		zap.Int("passed", res.Count(Passed)),
		zap.Int("failed", res.Count(Failed)),
		zap.Int("skipped", res.Count(Skipped)),
		zap.Duration("duration", res.Duration),
	)
	return res
}

func (r *Runner) hook(ctx context.Context, s *session.Session, h Hook) error {
	hookCtx, cancel := context.WithTimeout(ctx, r.opts.StepTimeout)
	defer cancel()
	var err error
	if r.guard(hookCtx, func() { err = h(hookCtx, s) }) {
		return fmt.Errorf("hook abandoned %v after its %v timeout", r.grace, r.opts.StepTimeout)
	}
	return err
}

func (r *Runner) closeSession(ctx context.Context, s *session.Session) error {
	var err error
	if r.guard(ctx, func() { err = s.Close(ctx) }) {
		return fmt.Errorf("session close abandoned %v after its %v timeout", r.grace, r.opts.StepTimeout)
	}
	return err
}

// guard runs fn on its own goroutine and waits for it. Once ctx is done fn
// gets r.grace to return before it is abandoned and guard reports true.
// Backend calls that ignore their context unblock when the session quits.
func (r *Runner) guard(ctx context.Context, fn func()) (abandoned bool) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	select {
	case <-done:
		return false
	case <-ctx.Done():
	}
	grace := time.NewTimer(r.grace)
	defer grace.Stop()
	select {
	case <-done:
		return false
	case <-grace.C:
		return true
	}
}

// runStep runs a step under guard so FailNow can end it with runtime.Goexit
// and a hung step cannot hold the run past its timeout.
func (r *Runner) runStep(ctx context.Context, s *session.Session, step Step) (StepResult, bool) {
	start := time.Now()
	stepCtx, cancel := context.WithTimeout(ctx, r.opts.StepTimeout)
	defer cancel()

	t := newT(step.Name, s.Logger())
	abandoned := r.guard(stepCtx, func() {
		defer func() {
			if v := recover(); v != nil {
				s.Logger().Error("Step panicked.", zap.String("step", step.Name), zap.Any("panic", v), zap.ByteString("stack", debug.Stack()))
				t.Errorf("panic: %v", v)
			}
		}()
		step.Run(stepCtx, t, s)
	})

	switch {
	case ctx.Err() != nil:
		t.Errorf("step interrupted: %v", ctx.Err())
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		t.Errorf("step exceeded its %v timeout", r.opts.StepTimeout)
	}
	if abandoned {
		s.Logger().Warn("Step did not return after its context ended; abandoning it.", zap.String("step", step.Name))
		t.Errorf("step abandoned: still running %v after its context ended", r.grace)
	}

	res := StepResult{Name: step.Name, Status: Passed, Duration: time.Since(start)}
	if t.Failed() {
		res.Status = Failed
		res.Failure = t.Failure()
	}
	return res, abandoned
}

func joinMessages(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

// Package wait polls a browser session until a condition holds or a timeout
// elapses. Waits never fail the caller: every outcome is reported as a Result.
package wait

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

// Timeouts are the default budgets per condition family.
type Timeouts struct {
	URL     time.Duration
	Element time.Duration
	Text    time.Duration
	Poll    time.Duration
}

// DefaultTimeouts returns the stock budgets: 30s for URLs, 10s for elements,
// 20s for text, polling every 100ms.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		URL:     30 * time.Second,
		Element: 10 * time.Second,
		Text:    20 * time.Second,
		Poll:    100 * time.Millisecond,
	}
}

// Waiter evaluates conditions against one driver.
type Waiter struct {
	driver   browser.Driver
	timeouts Timeouts
	logger   *zap.Logger
}

// New creates a Waiter. Zero fields in t fall back to DefaultTimeouts.
func New(d browser.Driver, t Timeouts, logger *zap.Logger) *Waiter {
	def := DefaultTimeouts()
	if t.URL <= 0 {
		t.URL = def.URL
	}
	if t.Element <= 0 {
		t.Element = def.Element
	}
	if t.Text <= 0 {
		t.Text = def.Text
	}
	if t.Poll <= 0 {
		t.Poll = def.Poll
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Waiter{driver: d, timeouts: t, logger: logger.Named("wait")}
}

// Timeouts returns the effective budgets.
func (w *Waiter) Timeouts() Timeouts { return w.timeouts }

// Until polls cond until it holds, timeout elapses or ctx is done.
func (w *Waiter) Until(ctx context.Context, cond Condition, timeout time.Duration) Result {
	start := time.Now()
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(w.timeouts.Poll), 1)
	limiter.Allow() // the first check runs immediately
	var lastErr error

	for {
		ok, err := cond.Check(opCtx, w.driver)
		switch {
		case err == nil && ok:
			return Result{Condition: cond.Name, Outcome: Met, Elapsed: time.Since(start)}
		case err == nil:
		case errors.Is(err, browser.ErrNoSuchElement):
			lastErr = err
		case opCtx.Err() != nil:
			// The check was cut short by the deadline; fall through to the timeout path.
		default:
			w.logger.Debug("Wait aborted by driver error.", zap.String("condition", cond.Name), zap.Error(err))
			return Result{Condition: cond.Name, Outcome: Errored, Cause: err, Elapsed: time.Since(start)}
		}

		// Wait fails early when the next tick would land past the deadline.
		if opCtx.Err() != nil || limiter.Wait(opCtx) != nil {
			break
		}
	}

	elapsed := time.Since(start)
	if err := ctx.Err(); err != nil {
		return Result{Condition: cond.Name, Outcome: Errored, Cause: err, Elapsed: elapsed}
	}
	w.logger.Debug("Wait timed out.", zap.String("condition", cond.Name), zap.Duration("timeout", timeout), zap.NamedError("last_error", lastErr))
	return Result{Condition: cond.Name, Outcome: TimedOut, Cause: lastErr, Elapsed: elapsed}
}

// For waits on an element condition. A zero timeout uses the element default.
func (w *Waiter) For(ctx context.Context, kind Kind, loc browser.Locator, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = w.timeouts.Element
	}
	var cond Condition
	switch kind {
	case KindPresent:
		cond = Present(loc)
	case KindVisible:
		cond = Visible(loc)
	case KindEnabled:
		cond = Clickable(loc)
	case KindNotVisible:
		cond = NotVisible(loc)
	default:
		return Result{Condition: string(kind), Outcome: Errored, Cause: errors.New("unknown wait condition " + string(kind))}
	}
	return w.Until(ctx, cond, timeout)
}

// Present waits for loc to exist.
func (w *Waiter) Present(ctx context.Context, loc browser.Locator) Result {
	return w.Until(ctx, Present(loc), w.timeouts.Element)
}

// Visible waits for loc to be displayed.
func (w *Waiter) Visible(ctx context.Context, loc browser.Locator) Result {
	return w.Until(ctx, Visible(loc), w.timeouts.Element)
}

// Clickable waits for loc to be displayed and enabled.
func (w *Waiter) Clickable(ctx context.Context, loc browser.Locator) Result {
	return w.Until(ctx, Clickable(loc), w.timeouts.Element)
}

// NotVisible waits for loc to disappear or be hidden.
func (w *Waiter) NotVisible(ctx context.Context, loc browser.Locator) Result {
	return w.Until(ctx, NotVisible(loc), w.timeouts.Element)
}

// ContainsText waits for loc's text to contain expected, ignoring case and
// surrounding whitespace.
func (w *Waiter) ContainsText(ctx context.Context, loc browser.Locator, expected string) Result {
	return w.Until(ctx, ContainsText(loc, expected), w.timeouts.Text)
}

// URL waits for the current URL to equal url.
func (w *Waiter) URL(ctx context.Context, url string) Result {
	return w.Until(ctx, URLIs(url), w.timeouts.URL)
}

// URLContains waits for the current URL to contain fragment.
func (w *Waiter) URLContains(ctx context.Context, fragment string) Result {
	return w.Until(ctx, URLContains(fragment), w.timeouts.URL)
}

package interact

import (
	"context"
	"fmt"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

// AssertMode selects the state ElementAssertClick waits for and asserts.
type AssertMode string

const (
	AssertEnabled   AssertMode = "enabled"
	AssertDisplayed AssertMode = "displayed"
	AssertPresent   AssertMode = "present"
	AssertNone      AssertMode = ""
)

// request is one locate, scroll, assert, act operation.
type request struct {
	mode        AssertMode
	scrollClass string
	scrollID    string
	click       bool
	assert      bool
}

// Option customizes ElementAssertClick.
type Option func(*request)

// WithAssert sets the assertion mode. The default is AssertEnabled.
func WithAssert(mode AssertMode) Option {
	return func(r *request) { r.mode = mode }
}

// ScrollByClass scrolls to the element with the given class, at the same
// index, instead of the target itself.
func ScrollByClass(class string) Option {
	return func(r *request) { r.scrollClass = class }
}

// ScrollByID scrolls to the element with the given id instead of the target.
func ScrollByID(id string) Option {
	return func(r *request) { r.scrollID = id }
}

// NoClick skips the final click.
func NoClick() Option {
	return func(r *request) { r.click = false }
}

// NoAssert keeps the wait for the assert mode but skips the assertions.
// AssertPresent still asserts.
func NoAssert() Option {
	return func(r *request) { r.assert = false }
}

// ClickReport records the best-effort stages of ElementAssertClick.
// Stages that did not run are left as the zero Result with an empty Condition.
type ClickReport struct {
	Presence wait.Result
	Scroll   wait.Result
	Ready    wait.Result
	Click    wait.Result
}

// Err returns the first stage that ran and did not succeed.
func (r ClickReport) Err() error {
	for _, res := range []wait.Result{r.Presence, r.Scroll, r.Ready, r.Click} {
		if res.Condition != "" && !res.OK() {
			return res.Err()
		}
	}
	return nil
}

// ElementAssertClick waits for loc, scrolls it into view, asserts its state
// through t and clicks it.
//
// Waits, scrolling and the click are best-effort: their outcomes land in the
// returned report and a click failure is only logged. Assertions are hard and
// end the step through t.
func ElementAssertClick(ctx context.Context, t require.TestingT, s *session.Session, loc browser.Locator, opts ...Option) ClickReport {
	helper(t)
	req := request{mode: AssertEnabled, click: true, assert: true}
	for _, opt := range opts {
		opt(&req)
	}

	var report ClickReport
	w := s.Waiter()
	report.Presence = w.Present(ctx, loc)

	switch {
	case req.scrollID != "":
		report.Scroll = ScrollToViewByID(ctx, s, req.scrollID)
	case req.scrollClass != "":
		report.Scroll = ScrollToViewByClass(ctx, s, req.scrollClass, loc.Index)
	default:
		report.Scroll = ScrollToElement(ctx, s, loc)
	}

	d := s.Driver()
	switch req.mode {
	case AssertEnabled:
		report.Ready = w.Clickable(ctx, loc)
		if req.assert {
			assertPresent(ctx, t, d, loc)
			enabled, err := d.Enabled(ctx, loc)
			require.True(t, err == nil && enabled, "Element not enabled!: [%s]", loc.Selector)
		}
	case AssertDisplayed:
		report.Ready = w.Visible(ctx, loc)
		if req.assert {
			assertPresent(ctx, t, d, loc)
			shown, err := d.Displayed(ctx, loc)
			require.True(t, err == nil && shown, "Element not visible!: [%s]", loc.Selector)
		}
	case AssertPresent:
		assertPresent(ctx, t, d, loc)
	}

	if req.click {
		start := time.Now()
		err := s.Family().Click(ctx, d, loc)
		report.Click = wait.Attempt(fmt.Sprintf("click(%s)", loc), start, err)
		if err != nil {
			s.Logger().Warn("Click failed.", zap.Stringer("locator", loc), zap.Error(err))
		}
	}
	return report
}

func assertPresent(ctx context.Context, t require.TestingT, d browser.Driver, loc browser.Locator) {
	helper(t)
	n, err := d.Count(ctx, loc)
	require.True(t, err == nil && loc.Index < n, "Element not present!: [%s]", loc.Selector)
}

// ClickElement clicks loc with the session's family strategy. Unlike
// ElementAssertClick, failures are returned.
func ClickElement(ctx context.Context, s *session.Session, loc browser.Locator) error {
	return s.Family().Click(ctx, s.Driver(), loc)
}

// JSClick clicks loc from script regardless of browser family.
func JSClick(ctx context.Context, s *session.Session, loc browser.Locator) error {
	return session.ScriptClick(ctx, s.Driver(), loc)
}

const focusScript = `var el = %s;
if (!el) { return false; }
el.focus();
return true;`

// JSFocus focuses loc from script.
func JSFocus(ctx context.Context, s *session.Session, loc browser.Locator) error {
	res, err := s.Driver().Execute(ctx, fmt.Sprintf(focusScript, loc.JS()))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFocus, loc, err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("%w: %s: %v", ErrFocus, loc, browser.ErrNoSuchElement)
	}
	return nil
}

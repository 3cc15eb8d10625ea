// Package pwdriver drives Firefox and WebKit directly through Playwright.
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

const defaultOpTimeout = 10 * time.Second

// Driver implements browser.Driver on a single Playwright page. Playwright
// calls take no context; ctx is checked before each call and its deadline
// bounds the Playwright timeout.
type Driver struct {
	page      playwright.Page
	name      string
	logger    *zap.Logger
	opTimeout time.Duration
	closeFunc func() error
	closed    bool
}

var _ browser.Driver = (*Driver)(nil)

// New wraps an open page. name is the browser name reported to sessions and
// closeFunc, if set, is run by Quit.
func New(page playwright.Page, name string, logger *zap.Logger, closeFunc func() error) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{page: page, name: name, logger: logger, opTimeout: defaultOpTimeout, closeFunc: closeFunc}
}

// timeout returns the Playwright timeout in milliseconds for an operation,
// capped by ctx's deadline.
func (d *Driver) timeout(ctx context.Context) *float64 {
	budget := d.opTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < budget {
			budget = left
		}
	}
	if budget < time.Millisecond {
		budget = time.Millisecond
	}
	return playwright.Float(float64(budget.Milliseconds()))
}

// selector renders loc in Playwright's selector syntax.
func selector(loc browser.Locator) string {
	if css, ok := loc.CSSSelector(); ok {
		return "css=" + css
	}
	return "xpath=" + loc.Selector
}

// element resolves loc to a single-element locator, failing with
// browser.ErrNoSuchElement when its index is out of range.
func (d *Driver) element(ctx context.Context, loc browser.Locator) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := d.page.Locator(selector(loc))
	n, err := all.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", loc, err)
	}
	if loc.Index >= n {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return all.Nth(loc.Index), nil
}

// wrap prefers the context error when ctx ended during a Playwright call.
func wrap(ctx context.Context, what string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debug("Navigating.", zap.String("url", url))
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   d.timeout(ctx),
	})
	return wrap(ctx, "failed to navigate to "+url, err)
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title, err := d.page.Title()
	return title, wrap(ctx, "failed to read title", err)
}

func (d *Driver) Count(ctx context.Context, loc browser.Locator) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := d.page.Locator(selector(loc)).Count()
	return n, wrap(ctx, "failed to count "+loc.String(), err)
}

func (d *Driver) Displayed(ctx context.Context, loc browser.Locator) (bool, error) {
	el, err := d.element(ctx, loc)
	if err != nil {
		return false, err
	}
	ok, err := el.IsVisible()
	return ok, wrap(ctx, "failed to read visibility of "+loc.String(), err)
}

func (d *Driver) Enabled(ctx context.Context, loc browser.Locator) (bool, error) {
	el, err := d.element(ctx, loc)
	if err != nil {
		return false, err
	}
	ok, err := el.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: d.timeout(ctx)})
	return ok, wrap(ctx, "failed to read enabled state of "+loc.String(), err)
}

func (d *Driver) Text(ctx context.Context, loc browser.Locator) (string, error) {
	el, err := d.element(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := el.InnerText(playwright.LocatorInnerTextOptions{Timeout: d.timeout(ctx)})
	return text, wrap(ctx, "failed to read text of "+loc.String(), err)
}

func (d *Driver) Attribute(ctx context.Context, loc browser.Locator, name string) (string, error) {
	el, err := d.element(ctx, loc)
	if err != nil {
		return "", err
	}
	v, err := el.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: d.timeout(ctx)})
	return v, wrap(ctx, "failed to read attribute "+name+" of "+loc.String(), err)
}

func (d *Driver) Rect(ctx context.Context, loc browser.Locator) (browser.Rect, error) {
	el, err := d.element(ctx, loc)
	if err != nil {
		return browser.Rect{}, err
	}
	box, err := el.BoundingBox(playwright.LocatorBoundingBoxOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		return browser.Rect{}, wrap(ctx, "failed to get bounding box of "+loc.String(), err)
	}
	if box == nil {
		// Present in the DOM but not rendered.
		return browser.Rect{}, nil
	}
	return browser.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	el, err := d.element(ctx, loc)
	if err != nil {
		return err
	}
	return wrap(ctx, "failed to click "+loc.String(), el.Click(playwright.LocatorClickOptions{Timeout: d.timeout(ctx)}))
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	el, err := d.element(ctx, loc)
	if err != nil {
		return err
	}
	err = el.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: d.timeout(ctx)})
	return wrap(ctx, "failed to type into "+loc.String(), err)
}

// executeWrapper binds the argument array to `arguments` of a function body.
const executeWrapper = `(args) => (function() { %s }).apply(null, args)`

func (d *Driver) Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	res, err := d.page.Evaluate(fmt.Sprintf(executeWrapper, script), args)
	return res, wrap(ctx, "script evaluation failed", err)
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(ctx, "failed to clear cookies", d.page.Context().ClearCookies())
}

func sleep(ctx context.Context, dur time.Duration) error {
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) Pointer(ctx context.Context, actions ...browser.PointerAction) error {
	mouse := d.page.Mouse()
	for _, a := range actions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if a.Duration > 0 {
			if err := sleep(ctx, a.Duration); err != nil {
				return err
			}
		}
		var err error
		switch a.Kind {
		case browser.PointerMove:
			err = mouse.Move(a.X, a.Y)
		case browser.PointerDown:
			err = mouse.Down(playwright.MouseDownOptions{Button: playwright.MouseButtonLeft, ClickCount: playwright.Int(1)})
		case browser.PointerUp:
			err = mouse.Up(playwright.MouseUpOptions{Button: playwright.MouseButtonLeft, ClickCount: playwright.Int(1)})
		default:
			err = browser.ErrUnsupported
		}
		if err != nil {
			return wrap(ctx, "pointer "+a.Kind.String()+" failed", err)
		}
	}
	return nil
}

func (d *Driver) Chord(ctx context.Context, keys ...browser.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kb := d.page.Keyboard()
	for _, k := range keys {
		if err := kb.Down(k.Name()); err != nil {
			return wrap(ctx, fmt.Sprintf("failed to press %v", keys), err)
		}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := kb.Up(keys[i].Name()); err != nil {
			return wrap(ctx, fmt.Sprintf("failed to release %v", keys), err)
		}
	}
	return nil
}

// SetImplicitWait sets the page's default action timeout. Zero keeps the
// driver's own per-operation budget, since Playwright reads zero as no limit.
func (d *Driver) SetImplicitWait(ctx context.Context, wait time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if wait <= 0 {
		wait = d.opTimeout
	}
	d.page.SetDefaultTimeout(float64(wait.Milliseconds()))
	return nil
}

func (d *Driver) BrowserName(ctx context.Context) (string, error) {
	return d.name, ctx.Err()
}

// Quit closes the page's browser. It runs even if ctx is done and is safe to call twice.
func (d *Driver) Quit(ctx context.Context) error {
	if d.closed || d.closeFunc == nil {
		return nil
	}
	d.closed = true
	d.logger.Info("Closing browser.")
	if err := d.closeFunc(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

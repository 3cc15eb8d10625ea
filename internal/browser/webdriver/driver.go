// Package webdriver drives a browser through a remote W3C WebDriver endpoint,
// typically a Selenium hub.
package webdriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
)

// RemoteFunc starts a remote session. selenium.NewRemote satisfies it.
type RemoteFunc func(caps selenium.Capabilities, urlPrefix string) (selenium.WebDriver, error)

// Driver adapts a selenium.WebDriver to browser.Driver. The underlying client
// does not take a context, so cancellation is only observed between commands.
type Driver struct {
	wd     selenium.WebDriver
	logger *zap.Logger
}

var _ browser.Driver = (*Driver)(nil)

// Open starts a remote session for c on the hub at address.
func Open(ctx context.Context, c capabilities.Capability, address string, logger *zap.Logger) (*Driver, error) {
	return open(ctx, selenium.NewRemote, c, address, logger)
}

func open(ctx context.Context, remote RemoteFunc, c capabilities.Capability, address string, logger *zap.Logger) (*Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("webdriver")

	logger.Info("Starting remote session.", zap.String("address", address), zap.String("browser", c.BrowserName))
	wd, err := remote(selenium.Capabilities(c.Map()), address)
	if err != nil {
		return nil, fmt.Errorf("failed to start %s session on %s: %w", c.BrowserName, address, err)
	}
	return New(wd, logger), nil
}

// New wraps an established session.
func New(wd selenium.WebDriver, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{wd: wd, logger: logger}
}

func byOf(b browser.By) string {
	switch b {
	case browser.ByXPath:
		return selenium.ByXPATH
	case browser.ByTag:
		return selenium.ByTagName
	case browser.ByClass:
		return selenium.ByClassName
	case browser.ByID:
		return selenium.ByID
	default:
		return selenium.ByCSSSelector
	}
}

// translate maps element lookup failures onto browser.ErrNoSuchElement.
func translate(loc browser.Locator, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "no such element") || strings.Contains(msg, "stale element reference") {
		return fmt.Errorf("%s: %w: %v", loc, browser.ErrNoSuchElement, err)
	}
	return fmt.Errorf("%s: %w", loc, err)
}

func (d *Driver) all(ctx context.Context, loc browser.Locator) ([]selenium.WebElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	elems, err := d.wd.FindElements(byOf(loc.By), loc.Selector)
	if err != nil {
		return nil, translate(loc, err)
	}
	return elems, nil
}

func (d *Driver) find(ctx context.Context, loc browser.Locator) (selenium.WebElement, error) {
	elems, err := d.all(ctx, loc)
	if err != nil {
		return nil, err
	}
	if loc.Index < 0 || loc.Index >= len(elems) {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return elems[loc.Index], nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.logger.Debug("Navigating.", zap.String("url", url))
	return d.wd.Get(url)
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.CurrentURL()
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.wd.Title()
}

func (d *Driver) Count(ctx context.Context, loc browser.Locator) (int, error) {
	elems, err := d.all(ctx, loc)
	return len(elems), err
}

func (d *Driver) Displayed(ctx context.Context, loc browser.Locator) (bool, error) {
	el, err := d.find(ctx, loc)
	if err != nil {
		return false, err
	}
	ok, err := el.IsDisplayed()
	return ok, translate(loc, err)
}

func (d *Driver) Enabled(ctx context.Context, loc browser.Locator) (bool, error) {
	el, err := d.find(ctx, loc)
	if err != nil {
		return false, err
	}
	ok, err := el.IsEnabled()
	return ok, translate(loc, err)
}

func (d *Driver) Text(ctx context.Context, loc browser.Locator) (string, error) {
	el, err := d.find(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	return text, translate(loc, err)
}

func (d *Driver) Attribute(ctx context.Context, loc browser.Locator, name string) (string, error) {
	el, err := d.find(ctx, loc)
	if err != nil {
		return "", err
	}
	v, err := el.GetAttribute(name)
	return v, translate(loc, err)
}

func (d *Driver) Rect(ctx context.Context, loc browser.Locator) (browser.Rect, error) {
	el, err := d.find(ctx, loc)
	if err != nil {
		return browser.Rect{}, err
	}
	pt, err := el.Location()
	if err != nil {
		return browser.Rect{}, translate(loc, err)
	}
	size, err := el.Size()
	if err != nil {
		return browser.Rect{}, translate(loc, err)
	}
	return browser.Rect{X: float64(pt.X), Y: float64(pt.Y), Width: float64(size.Width), Height: float64(size.Height)}, nil
}

func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	el, err := d.find(ctx, loc)
	if err != nil {
		return err
	}
	return translate(loc, el.Click())
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	el, err := d.find(ctx, loc)
	if err != nil {
		return err
	}
	return translate(loc, el.SendKeys(text))
}

func (d *Driver) Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if args == nil {
		args = []interface{}{}
	}
	return d.wd.ExecuteScript(script, args)
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.wd.DeleteAllCookies()
}

// pointerScript replays a pointer sequence as DOM mouse events on whatever
// element sits under each point. The pinned client predates the W3C pointer
// actions endpoint.
const pointerScript = `var steps = arguments[0];
var x = 0, y = 0;
for (var i = 0; i < steps.length; i++) {
  var s = steps[i];
  if (s.kind === 'move') { x = s.x; y = s.y; }
  var el = document.elementFromPoint(x, y);
  if (!el) { return false; }
  var opts = {bubbles: true, cancelable: true, view: window, button: 0, clientX: x, clientY: y};
  if (s.kind === 'move') {
    el.dispatchEvent(new MouseEvent('mouseover', opts));
    el.dispatchEvent(new MouseEvent('mousemove', opts));
  } else {
    el.dispatchEvent(new MouseEvent(s.kind === 'down' ? 'mousedown' : 'mouseup', opts));
  }
}
return true;`

func (d *Driver) Pointer(ctx context.Context, actions ...browser.PointerAction) error {
	steps := make([]map[string]interface{}, 0, len(actions))
	for _, a := range actions {
		steps = append(steps, map[string]interface{}{"kind": a.Kind.String(), "x": a.X, "y": a.Y})
	}
	res, err := d.Execute(ctx, pointerScript, steps)
	if err != nil {
		return err
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("pointer sequence left the page: %w", browser.ErrNoSuchElement)
	}
	return nil
}

func (d *Driver) Chord(ctx context.Context, keys ...browser.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var down, up strings.Builder
	for i := range keys {
		down.WriteString(string(keys[i]))
		up.WriteString(string(keys[len(keys)-1-i]))
	}
	if err := d.wd.KeyDown(down.String()); err != nil {
		return fmt.Errorf("failed to press %v: %w", keys, err)
	}
	if err := d.wd.KeyUp(up.String()); err != nil {
		return fmt.Errorf("failed to release %v: %w", keys, err)
	}
	return nil
}

func (d *Driver) SetImplicitWait(ctx context.Context, wait time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.wd.SetImplicitWaitTimeout(wait)
}

func (d *Driver) BrowserName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	caps, err := d.wd.Capabilities()
	if err != nil {
		return "", err
	}
	name, _ := caps["browserName"].(string)
	if name == "" {
		return "", fmt.Errorf("session capabilities carry no browserName")
	}
	return name, nil
}

// Quit ends the remote session. It runs even if ctx is done.
func (d *Driver) Quit(ctx context.Context) error {
	d.logger.Info("Ending remote session.")
	return d.wd.Quit()
}

// Package cdp drives Chrome and Edge directly over the DevTools protocol,
// without a WebDriver hub in between.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

const (
	defaultOpTimeout  = 10 * time.Second
	navigationTimeout = 60 * time.Second
)

type runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error

// evaluateFunc builds the action that evaluates expr and stores the
// by-value result in res.
type evaluateFunc func(expr string, res *[]byte) chromedp.Action

// Driver implements browser.Driver on a single chromedp tab.
type Driver struct {
	ctx         context.Context // tab context carrying the CDP target
	browserName string
	logger      *zap.Logger
	opTimeout   time.Duration

	runActionsFunc runActionsFunc
	evaluate       evaluateFunc
	cancelBrowser  func() error

	// Last pointer position and button state; CDP mouse events are absolute.
	mouseX, mouseY float64
	pressed        bool
	closed         bool
}

var _ browser.Driver = (*Driver)(nil)

func newDriver(tabCtx context.Context, browserName string, logger *zap.Logger, cancelBrowser func() error) *Driver {
	d := &Driver{
		ctx:           tabCtx,
		browserName:   browserName,
		logger:        logger,
		opTimeout:     defaultOpTimeout,
		evaluate:      evaluate,
		cancelBrowser: cancelBrowser,
	}
	d.runActionsFunc = d.runActions
	return d
}

// runActions runs actions on the tab, bounded by both the tab's lifetime and ctx.
func (d *Driver) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(d.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func evaluate(expr string, res *[]byte) chromedp.Action {
	return chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true)
	})
}

// run executes actions under the per-operation timeout.
func (d *Driver) run(ctx context.Context, what string, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, d.opTimeout)
	defer cancel()

	err := d.runActionsFunc(opCtx, actions...)
	if err == nil {
		return nil
	}
	if errors.Is(opCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		d.logger.Debug("CDP operation timed out.", zap.String("operation", what), zap.Duration("timeout", d.opTimeout))
		return fmt.Errorf("%s timed out after %v: %w", what, d.opTimeout, opCtx.Err())
	}
	return fmt.Errorf("%s failed: %w", what, err)
}

// eval evaluates expr and decodes its by-value result into out.
func (d *Driver) eval(ctx context.Context, expr string, out interface{}) error {
	var raw []byte
	if err := d.run(ctx, "script evaluation", d.evaluate(expr, &raw)); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode script result: %w (payload: %s)", err, raw)
	}
	return nil
}

// elementScript never evaluates to null so a missing element can be told
// apart from a null property.
const elementScript = `(function() {
var el = %s;
if (!el) { return {found: false}; }
return {found: true, value: (%s)};
})()`

// element evaluates body with el bound to loc's element and decodes the value into out.
func (d *Driver) element(ctx context.Context, loc browser.Locator, body string, out interface{}) error {
	var res struct {
		Found bool            `json:"found"`
		Value json.RawMessage `json:"value"`
	}
	if err := d.eval(ctx, fmt.Sprintf(elementScript, loc.JS(), body), &res); err != nil {
		return err
	}
	if !res.Found {
		return fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	if out == nil || len(res.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return fmt.Errorf("failed to decode value of %s: %w", loc, err)
	}
	return nil
}

const (
	displayedJS = `(function(r, s) {
return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
})(el.getBoundingClientRect(), window.getComputedStyle(el))`
	enabledJS = `!el.disabled`
	textJS    = `(typeof el.innerText === 'string' ? el.innerText : (el.textContent || ''))`
	rectJS    = `(function(r) {
return {x: r.left, y: r.top, width: r.width, height: r.height};
})(el.getBoundingClientRect())`
	scrollRectJS = `(function() {
el.scrollIntoView({block: 'center', inline: 'center'});
var r = el.getBoundingClientRect();
return {x: r.left, y: r.top, width: r.width, height: r.height};
})()`
	focusJS = `(el.focus(), true)`
)

func (d *Driver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()

	d.logger.Debug("Navigating.", zap.String("url", url))
	if err := d.runActionsFunc(navCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(navCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("navigation to %s timed out after %v: %w", url, navigationTimeout, navCtx.Err())
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.eval(ctx, `window.location.href`, &url)
	return url, err
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	err := d.eval(ctx, `document.title`, &title)
	return title, err
}

func (d *Driver) Count(ctx context.Context, loc browser.Locator) (int, error) {
	var n int
	err := d.eval(ctx, fmt.Sprintf(`(%s).length`, loc.JSAll()), &n)
	return n, err
}

func (d *Driver) Displayed(ctx context.Context, loc browser.Locator) (bool, error) {
	var ok bool
	err := d.element(ctx, loc, displayedJS, &ok)
	return ok, err
}

func (d *Driver) Enabled(ctx context.Context, loc browser.Locator) (bool, error) {
	var ok bool
	err := d.element(ctx, loc, enabledJS, &ok)
	return ok, err
}

func (d *Driver) Text(ctx context.Context, loc browser.Locator) (string, error) {
	var text string
	err := d.element(ctx, loc, textJS, &text)
	return text, err
}

func (d *Driver) Attribute(ctx context.Context, loc browser.Locator, name string) (string, error) {
	var value string
	err := d.element(ctx, loc, fmt.Sprintf(`el.getAttribute(%s)`, browser.JSONEncode(name)), &value)
	return value, err
}

func (d *Driver) Rect(ctx context.Context, loc browser.Locator) (browser.Rect, error) {
	var r browser.Rect
	err := d.element(ctx, loc, rectJS, &r)
	return r, err
}

// Click scrolls the element to the middle of the viewport and clicks its
// center with real input events.
func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	var r browser.Rect
	if err := d.element(ctx, loc, scrollRectJS, &r); err != nil {
		return err
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("element not interactable: %s has no size", loc)
	}
	x, y := r.Center()
	err := d.run(ctx, "click",
		mouseEvent(input.MouseMoved, x, y, false),
		mouseEvent(input.MousePressed, x, y, true),
		mouseEvent(input.MouseReleased, x, y, false),
	)
	if err != nil {
		return err
	}
	d.mouseX, d.mouseY, d.pressed = x, y, false
	return nil
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	if err := d.element(ctx, loc, focusJS, nil); err != nil {
		return err
	}
	return d.run(ctx, "send keys", chromedp.KeyEvent(text))
}

const executeScript = `(function() {
var result = (function() { %s }).apply(null, %s);
return {value: result === undefined ? null : result};
})()`

func (d *Driver) Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode script arguments: %w", err)
	}
	var res struct {
		Value interface{} `json:"value"`
	}
	if err := d.eval(ctx, fmt.Sprintf(executeScript, script, encoded), &res); err != nil {
		return nil, err
	}
	return res.Value, nil
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	return d.run(ctx, "clear cookies", network.ClearBrowserCookies())
}

func mouseEvent(typ input.MouseType, x, y float64, pressed bool) *input.DispatchMouseEventParams {
	p := input.DispatchMouseEvent(typ, x, y)
	if typ != input.MouseMoved {
		p = p.WithButton(input.Left).WithClickCount(1)
	}
	if pressed {
		p = p.WithButtons(1)
	}
	return p
}

// Pointer dispatches the sequence as CDP mouse events. Press and release
// happen at the last position moved to, which persists across calls.
func (d *Driver) Pointer(ctx context.Context, actions ...browser.PointerAction) error {
	x, y, pressed := d.mouseX, d.mouseY, d.pressed
	seq := make([]chromedp.Action, 0, len(actions))
	for _, a := range actions {
		if a.Duration > 0 {
			seq = append(seq, chromedp.Sleep(a.Duration))
		}
		switch a.Kind {
		case browser.PointerMove:
			x, y = a.X, a.Y
			seq = append(seq, mouseEvent(input.MouseMoved, x, y, pressed))
		case browser.PointerDown:
			pressed = true
			seq = append(seq, mouseEvent(input.MousePressed, x, y, true))
		case browser.PointerUp:
			pressed = false
			seq = append(seq, mouseEvent(input.MouseReleased, x, y, false))
		default:
			return fmt.Errorf("pointer action %v: %w", a.Kind, browser.ErrUnsupported)
		}
	}
	if err := d.run(ctx, "pointer actions", seq...); err != nil {
		return err
	}
	d.mouseX, d.mouseY, d.pressed = x, y, pressed
	return nil
}

func modifierBit(k browser.Key) input.Modifier {
	switch k {
	case browser.KeyAlt:
		return input.ModifierAlt
	case browser.KeyControl:
		return input.ModifierCtrl
	case browser.KeyMeta:
		return input.ModifierMeta
	case browser.KeyShift:
		return input.ModifierShift
	}
	return 0
}

// editingCommands maps clipboard chords to the editor command Chrome runs for
// them. Synthetic key events do not trigger clipboard shortcuts on their own.
var editingCommands = map[string]string{
	"Control+c":      "copy",
	"Control+v":      "paste",
	"Control+x":      "cut",
	"Meta+c":         "copy",
	"Meta+v":         "paste",
	"Meta+x":         "cut",
	"Control+Insert": "copy",
	"Shift+Insert":   "paste",
	"Shift+Delete":   "cut",
}

func keyEvent(typ input.KeyType, k browser.Key, mods input.Modifier) *input.DispatchKeyEventParams {
	p := input.DispatchKeyEvent(typ).WithKey(k.Name()).WithModifiers(mods)
	if code := k.Code(); code != "" {
		p = p.WithCode(code)
	}
	if vk := k.VirtualKeyCode(); vk != 0 {
		p = p.WithWindowsVirtualKeyCode(vk)
	}
	return p
}

func (d *Driver) Chord(ctx context.Context, keys ...browser.Key) error {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Name()
	}
	command := editingCommands[strings.Join(names, "+")]

	var mods input.Modifier
	seq := make([]chromedp.Action, 0, 2*len(keys))
	for i, k := range keys {
		mods |= modifierBit(k)
		down := keyEvent(input.KeyDown, k, mods)
		if i == len(keys)-1 && command != "" {
			down = down.WithCommands([]string{command})
		}
		seq = append(seq, down)
	}
	for i := len(keys) - 1; i >= 0; i-- {
		mods &^= modifierBit(keys[i])
		seq = append(seq, keyEvent(input.KeyUp, keys[i], mods))
	}
	return d.run(ctx, fmt.Sprintf("key chord %v", keys), seq...)
}

// SetImplicitWait is a no-op: CDP lookups never wait implicitly.
func (d *Driver) SetImplicitWait(ctx context.Context, wait time.Duration) error {
	d.logger.Debug("Implicit waits are not used over CDP.", zap.Duration("requested", wait))
	return ctx.Err()
}

func (d *Driver) BrowserName(ctx context.Context) (string, error) {
	return d.browserName, ctx.Err()
}

// Quit closes the browser. It runs even if ctx is done and is safe to call twice.
func (d *Driver) Quit(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.logger.Info("Closing browser.")
	if err := d.cancelBrowser(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

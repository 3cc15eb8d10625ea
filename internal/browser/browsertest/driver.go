// Package browsertest provides an in-memory browser.Driver for unit tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

// Element is a fake DOM element.
type Element struct {
	Text      string
	Attrs     map[string]string
	Displayed bool
	Enabled   bool
	Rect      browser.Rect
	// OnClick runs with the driver lock held after a successful native click.
	OnClick func(d *Driver)
	// ClickErr, when set, is returned by a native click.
	ClickErr error
	// Typed accumulates SendKeys input.
	Typed string
}

// Visible returns a displayed, enabled element with the given text.
func Visible(text string) *Element {
	return &Element{Text: text, Displayed: true, Enabled: true, Rect: browser.Rect{Width: 10, Height: 10}}
}

// ScriptCall records one Execute invocation.
type ScriptCall struct {
	Script string
	Args   []interface{}
}

// ScriptFunc emulates script execution.
type ScriptFunc func(ctx context.Context, d *Driver, script string, args []interface{}) (interface{}, error)

// Driver is a scriptable fake. The zero value is not usable; call New.
type Driver struct {
	mu sync.Mutex

	Name         string
	URL          string
	PageTitle    string
	elements     map[string][]*Element
	routes       map[string]func(d *Driver)
	Cookies      map[string]string
	ImplicitWait time.Duration
	Closed       bool

	Scripts  []ScriptCall
	Clicks   []browser.Locator
	Pointers []browser.PointerAction
	Chords   [][]browser.Key

	// OnScript, if set, emulates Execute. It is called without the lock held.
	OnScript ScriptFunc
	// Errs forces a method (by name, e.g. "Click") to fail.
	Errs map[string]error
}

// New returns an empty fake session for the named browser.
func New(name string) *Driver {
	return &Driver{
		Name:     name,
		URL:      "about:blank",
		elements: make(map[string][]*Element),
		routes:   make(map[string]func(d *Driver)),
		Cookies:  make(map[string]string),
		Errs:     make(map[string]error),
	}
}

var _ browser.Driver = (*Driver)(nil)

func key(loc browser.Locator) string { return loc.By.String() + "=" + loc.Selector }

// Put replaces the elements matched by loc's selector.
func (d *Driver) Put(loc browser.Locator, elems ...*Element) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[key(loc)] = elems
	return d
}

// Route registers a page: navigating to url sets URL and runs setup.
func (d *Driver) Route(url string, setup func(d *Driver)) *Driver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[url] = setup
	return d
}

// Mutate runs fn with the driver locked, for changing state mid-test.
func (d *Driver) Mutate(fn func(d *Driver)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d)
}

// Clear removes every element; used by route setups to start a fresh page.
func (d *Driver) Clear() {
	d.elements = make(map[string][]*Element)
}

// Set is Put for use inside Mutate or a route, where the lock is already held.
func (d *Driver) Set(loc browser.Locator, elems ...*Element) {
	d.elements[key(loc)] = elems
}

// Goto switches to a registered route; for use with the lock held.
func (d *Driver) Goto(url string) {
	d.URL = url
	if setup, ok := d.routes[url]; ok {
		setup(d)
	}
}

// ScriptCalls returns a snapshot of recorded scripts.
func (d *Driver) ScriptCalls() []ScriptCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ScriptCall(nil), d.Scripts...)
}

// ClickedLocators returns a snapshot of native clicks.
func (d *Driver) ClickedLocators() []browser.Locator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.Locator(nil), d.Clicks...)
}

// PointerActions returns a snapshot of dispatched pointer actions.
func (d *Driver) PointerActions() []browser.PointerAction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]browser.PointerAction(nil), d.Pointers...)
}

// PressedChords returns a snapshot of dispatched chords.
func (d *Driver) PressedChords() [][]browser.Key {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]browser.Key(nil), d.Chords...)
}

func (d *Driver) enter(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	if err := d.Errs[op]; err != nil {
		d.mu.Unlock()
		return err
	}
	return nil
}

func (d *Driver) lookup(loc browser.Locator) (*Element, error) {
	elems := d.elements[key(loc)]
	if loc.Index < 0 || loc.Index >= len(elems) {
		return nil, fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return elems[loc.Index], nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.enter(ctx, "Navigate"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.Goto(url)
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := d.enter(ctx, "CurrentURL"); err != nil {
		return "", err
	}
	defer d.mu.Unlock()
	return d.URL, nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.enter(ctx, "Title"); err != nil {
		return "", err
	}
	defer d.mu.Unlock()
	return d.PageTitle, nil
}

func (d *Driver) Count(ctx context.Context, loc browser.Locator) (int, error) {
	if err := d.enter(ctx, "Count"); err != nil {
		return 0, err
	}
	defer d.mu.Unlock()
	return len(d.elements[key(loc)]), nil
}

func (d *Driver) Displayed(ctx context.Context, loc browser.Locator) (bool, error) {
	if err := d.enter(ctx, "Displayed"); err != nil {
		return false, err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return false, err
	}
	return el.Displayed, nil
}

func (d *Driver) Enabled(ctx context.Context, loc browser.Locator) (bool, error) {
	if err := d.enter(ctx, "Enabled"); err != nil {
		return false, err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return false, err
	}
	return el.Enabled, nil
}

func (d *Driver) Text(ctx context.Context, loc browser.Locator) (string, error) {
	if err := d.enter(ctx, "Text"); err != nil {
		return "", err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (d *Driver) Attribute(ctx context.Context, loc browser.Locator, name string) (string, error) {
	if err := d.enter(ctx, "Attribute"); err != nil {
		return "", err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return "", err
	}
	return el.Attrs[name], nil
}

func (d *Driver) Rect(ctx context.Context, loc browser.Locator) (browser.Rect, error) {
	if err := d.enter(ctx, "Rect"); err != nil {
		return browser.Rect{}, err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return browser.Rect{}, err
	}
	return el.Rect, nil
}

func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	if err := d.enter(ctx, "Click"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return err
	}
	if el.ClickErr != nil {
		return el.ClickErr
	}
	if !el.Displayed {
		return fmt.Errorf("%s: element not interactable", loc)
	}
	d.Clicks = append(d.Clicks, loc)
	if el.OnClick != nil {
		el.OnClick(d)
	}
	return nil
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	if err := d.enter(ctx, "SendKeys"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	el, err := d.lookup(loc)
	if err != nil {
		return err
	}
	el.Typed += text
	return nil
}

func (d *Driver) Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error) {
	if err := d.enter(ctx, "Execute"); err != nil {
		return nil, err
	}
	d.Scripts = append(d.Scripts, ScriptCall{Script: script, Args: args})
	hook := d.OnScript
	d.mu.Unlock()
	if hook == nil {
		return nil, nil
	}
	return hook(ctx, d, script, args)
}

func (d *Driver) DeleteAllCookies(ctx context.Context) error {
	if err := d.enter(ctx, "DeleteAllCookies"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.Cookies = make(map[string]string)
	return nil
}

func (d *Driver) Pointer(ctx context.Context, actions ...browser.PointerAction) error {
	if err := d.enter(ctx, "Pointer"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.Pointers = append(d.Pointers, actions...)
	return nil
}

func (d *Driver) Chord(ctx context.Context, keys ...browser.Key) error {
	if err := d.enter(ctx, "Chord"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.Chords = append(d.Chords, append([]browser.Key(nil), keys...))
	return nil
}

func (d *Driver) SetImplicitWait(ctx context.Context, wait time.Duration) error {
	if err := d.enter(ctx, "SetImplicitWait"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.ImplicitWait = wait
	return nil
}

func (d *Driver) BrowserName(ctx context.Context) (string, error) {
	if err := d.enter(ctx, "BrowserName"); err != nil {
		return "", err
	}
	defer d.mu.Unlock()
	return d.Name, nil
}

func (d *Driver) Quit(ctx context.Context) error {
	if err := d.enter(ctx, "Quit"); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.Closed = true
	return nil
}

// ScriptContains returns an OnScript hook that answers result for scripts
// containing fragment and nil otherwise.
func ScriptContains(fragment string, result interface{}) ScriptFunc {
	return func(_ context.Context, _ *Driver, script string, _ []interface{}) (interface{}, error) {
		if strings.Contains(script, fragment) {
			return result, nil
		}
		return nil, nil
	}
}

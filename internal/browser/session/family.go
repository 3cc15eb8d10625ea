package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

// ErrScriptClick is returned when a scripted click could not be dispatched.
var ErrScriptClick = errors.New("Click Error!")

// Family holds the behaviour that differs between browser families.
type Family interface {
	Name() string
	Click(ctx context.Context, d browser.Driver, loc browser.Locator) error
	MouseMove(ctx context.Context, d browser.Driver, loc browser.Locator) error
	MouseDown(ctx context.Context, d browser.Driver, loc browser.Locator) error
	MouseUp(ctx context.Context, d browser.Driver, loc browser.Locator) error
	// ScrollArg is the JavaScript argument passed to Element.scrollIntoView.
	ScrollArg() string
}

// FamilyFor returns the strategy for a browser name. Unknown names get the
// generic native-action behaviour.
func FamilyFor(name string) Family {
	switch name {
	case "chrome":
		return nativeFamily{name: "chrome", smooth: true}
	case "firefox":
		return firefoxFamily{nativeFamily{name: "firefox"}}
	case "safari":
		return safariFamily{nativeFamily{name: "safari"}}
	case "ie", "internet explorer":
		return ieFamily{nativeFamily{name: "ie"}}
	case "microsoftedge", "edge", "msedge":
		return nativeFamily{name: "edge"}
	default:
		return nativeFamily{name: "default"}
	}
}

// nativeFamily drives everything through the driver's native primitives.
type nativeFamily struct {
	name   string
	smooth bool
}

func (f nativeFamily) Name() string { return f.name }

func (f nativeFamily) Click(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return d.Click(ctx, loc)
}

func (f nativeFamily) MouseMove(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return pointerAt(ctx, d, loc)
}

func (f nativeFamily) MouseDown(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return pointerAt(ctx, d, loc, browser.Press())
}

func (f nativeFamily) MouseUp(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return pointerAt(ctx, d, loc, browser.Release())
}

func (f nativeFamily) ScrollArg() string {
	behavior := "auto"
	if f.smooth {
		behavior = "smooth"
	}
	return fmt.Sprintf("{behavior: '%s', block: 'nearest', inline: 'start'}", behavior)
}

// pointerAt moves the mouse to the element's center and performs the given actions there.
func pointerAt(ctx context.Context, d browser.Driver, loc browser.Locator, then ...browser.PointerAction) error {
	r, err := d.Rect(ctx, loc)
	if err != nil {
		return err
	}
	x, y := r.Center()
	return d.Pointer(ctx, append([]browser.PointerAction{browser.MoveTo(x, y)}, then...)...)
}

// firefoxFamily dispatches synthetic mouse events from script.
type firefoxFamily struct{ nativeFamily }

func (f firefoxFamily) MouseMove(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return dispatchMouseEvent(ctx, d, loc, "mousemove")
}

func (f firefoxFamily) MouseDown(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return dispatchMouseEvent(ctx, d, loc, "mousedown")
}

func (f firefoxFamily) MouseUp(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return dispatchMouseEvent(ctx, d, loc, "mouseup")
}

const mouseEventScript = `var el = %s;
if (!el) { return false; }
var r = el.getBoundingClientRect();
var opts = {bubbles: true, cancelable: true, view: window, button: 0,
  clientX: r.left + r.width / 2, clientY: r.top + r.height / 2};
if (arguments[0] === 'mousemove') { el.dispatchEvent(new MouseEvent('mouseover', opts)); }
el.dispatchEvent(new MouseEvent(arguments[0], opts));
return true;`

func dispatchMouseEvent(ctx context.Context, d browser.Driver, loc browser.Locator, event string) error {
	res, err := d.Execute(ctx, fmt.Sprintf(mouseEventScript, loc.JS()), event)
	if err != nil {
		return err
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
	}
	return nil
}

// safariFamily clicks from script.
type safariFamily struct{ nativeFamily }

const scriptClick = `var el = %s;
if (!el) { return false; }
el.click();
return true;`

func (f safariFamily) Click(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	return ScriptClick(ctx, d, loc)
}

// ScriptClick clicks loc by calling element.click() in the page. Any failure
// is reported as ErrScriptClick.
func ScriptClick(ctx context.Context, d browser.Driver, loc browser.Locator) error {
	res, err := d.Execute(ctx, fmt.Sprintf(scriptClick, loc.JS()))
	if err != nil {
		return fmt.Errorf("%w\n%s: %v", ErrScriptClick, loc, err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("%w\n%s: %v", ErrScriptClick, loc, browser.ErrNoSuchElement)
	}
	return nil
}

// ieFamily uses the legacy boolean form of scrollIntoView.
type ieFamily struct{ nativeFamily }

func (f ieFamily) ScrollArg() string { return "false" }

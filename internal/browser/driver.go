// Package browser defines the contract between the test helpers and the
// browser-automation runtime that actually drives a browser.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoSuchElement is returned when a locator matches fewer elements than its index requires.
var ErrNoSuchElement = errors.New("no such element")

// ErrUnsupported is returned by a backend for an operation it cannot perform.
var ErrUnsupported = errors.New("operation not supported by driver")

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of the box.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Driver is a live browser session as exposed by an automation backend.
// Implementations are not required to be safe for concurrent use; callers
// issue commands sequentially.
//
// Element methods take a Locator and act on the element at its index.
// They return an error wrapping ErrNoSuchElement when that element does not exist.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)

	// Count returns how many elements the locator's selector matches.
	Count(ctx context.Context, loc Locator) (int, error)
	Displayed(ctx context.Context, loc Locator) (bool, error)
	Enabled(ctx context.Context, loc Locator) (bool, error)
	Text(ctx context.Context, loc Locator) (string, error)
	Attribute(ctx context.Context, loc Locator, name string) (string, error)
	Rect(ctx context.Context, loc Locator) (Rect, error)
	Click(ctx context.Context, loc Locator) error
	SendKeys(ctx context.Context, loc Locator, text string) error

	// Execute runs script as the body of a function invoked with args bound
	// to `arguments`, and returns its JSON-decoded result.
	Execute(ctx context.Context, script string, args ...interface{}) (interface{}, error)

	DeleteAllCookies(ctx context.Context) error
	// Pointer performs a pointer action sequence with the primary mouse.
	Pointer(ctx context.Context, actions ...PointerAction) error
	// Chord presses keys in order and releases them in reverse order.
	Chord(ctx context.Context, keys ...Key) error
	SetImplicitWait(ctx context.Context, d time.Duration) error

	// BrowserName reports the browser name from the negotiated capabilities.
	BrowserName(ctx context.Context) (string, error)
	Quit(ctx context.Context) error
}

// PointerKind is the type of a single pointer action.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerDown
	PointerUp
)

func (k PointerKind) String() string {
	switch k {
	case PointerMove:
		return "move"
	case PointerDown:
		return "down"
	case PointerUp:
		return "up"
	default:
		return "unknown"
	}
}

// PointerAction is one step of a pointer sequence. X and Y are viewport
// coordinates and only used by PointerMove.
type PointerAction struct {
	Kind     PointerKind
	X, Y     float64
	Duration time.Duration
}

// MoveTo returns a move to the given viewport point.
func MoveTo(x, y float64) PointerAction {
	return PointerAction{Kind: PointerMove, X: x, Y: y}
}

// Press returns a left-button down.
func Press() PointerAction { return PointerAction{Kind: PointerDown} }

// Release returns a left-button up.
func Release() PointerAction { return PointerAction{Kind: PointerUp} }

package interact

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

// UniqueString returns the current epoch milliseconds followed by a random
// base-36 fragment. It is meant for test data, not secrets.
func UniqueString() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + strconv.FormatUint(rand.Uint64(), 36)
}

// BlurActiveElement removes keyboard focus from the page and waits for the blur delay.
func BlurActiveElement(ctx context.Context, s *session.Session) wait.Result {
	start := time.Now()
	_, err := s.Driver().Execute(ctx, "if (document.activeElement) { document.activeElement.blur(); }")
	if err != nil {
		s.Logger().Debug("Blur failed.", zap.Error(err))
	}
	if serr := s.Sleep(ctx, s.Delays().Blur); serr != nil && err == nil {
		err = serr
	}
	return wait.Attempt("blur-active-element", start, err)
}

// CrumbledInput types text into loc one character at a time, then waits for
// the input delay.
func CrumbledInput(ctx context.Context, s *session.Session, loc browser.Locator, text string) error {
	d := s.Driver()
	for _, r := range text {
		if err := d.SendKeys(ctx, loc, string(r)); err != nil {
			return fmt.Errorf("failed to type into %s: %w", loc, err)
		}
	}
	return s.Sleep(ctx, s.Delays().Input)
}

// MouseActionType is the pointer gesture performed by MouseAction.
type MouseActionType string

const (
	MouseMove MouseActionType = "move"
	MouseDown MouseActionType = "down"
	MouseUp   MouseActionType = "up"
)

// MouseOptions tune MouseAction.
type MouseOptions struct {
	// Click clicks the element after the gesture.
	Click bool
	// KeepFocus skips blurring the active element first.
	KeepFocus bool
}

// MouseAction performs a pointer gesture on loc through the session's family
// strategy. Unknown action types are treated as a move. An absent element is a
// no-op. The gesture itself is best-effort; only the optional click returns an
// error.
func MouseAction(ctx context.Context, s *session.Session, loc browser.Locator, action MouseActionType, opts MouseOptions) (wait.Result, error) {
	if !opts.KeepFocus {
		BlurActiveElement(ctx, s)
	}

	start := time.Now()
	name := fmt.Sprintf("mouse-%s(%s)", action, loc)
	d := s.Driver()
	n, err := d.Count(ctx, loc)
	if err != nil || loc.Index >= n {
		if err == nil {
			err = fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
		}
		return wait.Attempt(name, start, err), nil
	}

	f := s.Family()
	switch action {
	case MouseDown:
		err = f.MouseDown(ctx, d, loc)
	case MouseUp:
		err = f.MouseUp(ctx, d, loc)
	default:
		err = f.MouseMove(ctx, d, loc)
	}
	res := wait.Attempt(name, start, err)
	if err != nil {
		s.Logger().Debug("Mouse action failed.", zap.String("action", string(action)), zap.Stringer("locator", loc), zap.Error(err))
	}

	if opts.Click {
		return res, ClickElement(ctx, s, loc)
	}
	return res, nil
}

// KeyOp is a clipboard operation.
type KeyOp string

const (
	Copy  KeyOp = "copy"
	Paste KeyOp = "paste"
	Cut   KeyOp = "cut"
)

// Chord is a two-key combination.
type Chord struct {
	Key1 browser.Key
	Key2 browser.Key
}

// Keys returns the chord as a key sequence.
func (c Chord) Keys() []browser.Key { return []browser.Key{c.Key1, c.Key2} }

// GetKeyboardKeys returns the chord for a clipboard operation. With the osx
// parameter set, the Insert/Delete based chords are used.
func GetKeyboardKeys(s *session.Session, op KeyOp) (Chord, error) {
	osx := s.Params().OSX
	switch KeyOp(strings.ToLower(string(op))) {
	case Copy:
		if osx {
			return Chord{browser.KeyControl, browser.KeyInsert}, nil
		}
		return Chord{browser.KeyControl, "c"}, nil
	case Paste:
		if osx {
			return Chord{browser.KeyShift, browser.KeyInsert}, nil
		}
		return Chord{browser.KeyControl, "v"}, nil
	case Cut:
		if osx {
			return Chord{browser.KeyShift, browser.KeyDelete}, nil
		}
		return Chord{browser.KeyControl, "x"}, nil
	}
	return Chord{}, fmt.Errorf("%w: %q", ErrUnknownKeyOp, op)
}

// PressChord presses the chord for op against the focused element.
func PressChord(ctx context.Context, s *session.Session, op KeyOp) error {
	c, err := GetKeyboardKeys(s, op)
	if err != nil {
		return err
	}
	return s.Driver().Chord(ctx, c.Keys()...)
}

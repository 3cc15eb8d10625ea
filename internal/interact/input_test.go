package interact

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

func TestUniqueString(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{13}[0-9a-z]+$`)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		s := UniqueString()
		require.Regexp(t, pattern, s)
		_, dup := seen[s]
		require.False(t, dup, "duplicate after %d calls: %s", i, s)
		seen[s] = struct{}{}
	}
}

func TestBlurActiveElement(t *testing.T) {
	d := browsertest.New("chrome")
	s := fastSession(t, d, session.Params{})

	res := BlurActiveElement(context.Background(), s)
	assert.True(t, res.OK())
	require.Len(t, d.ScriptCalls(), 1)
	assert.Contains(t, d.ScriptCalls()[0].Script, "document.activeElement.blur()")
}

func TestCrumbledInput(t *testing.T) {
	field := browsertest.Visible("")
	d := browsertest.New("chrome").Put(browser.ID("stateName"), field)
	s := fastSession(t, d, session.Params{})

	require.NoError(t, CrumbledInput(context.Background(), s, browser.ID("stateName"), "Zürich"))
	assert.Equal(t, "Zürich", field.Typed)

	err := CrumbledInput(context.Background(), s, browser.ID("missing"), "x")
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)
}

func TestMouseAction(t *testing.T) {
	ctx := context.Background()
	el := browsertest.Visible("Dogs")
	el.Rect = browser.Rect{X: 10, Y: 10, Width: 20, Height: 20}

	t.Run("absent element is a no-op", func(t *testing.T) {
		d := browsertest.New("chrome")
		s := fastSession(t, d, session.Params{})

		res, err := MouseAction(ctx, s, button, MouseDown, MouseOptions{Click: true})
		require.NoError(t, err)
		assert.Equal(t, wait.Errored, res.Outcome)
		assert.Empty(t, d.PointerActions())
		assert.Empty(t, d.ClickedLocators())
	})

	t.Run("native move blurs first", func(t *testing.T) {
		d := browsertest.New("chrome").Put(button, el)
		s := fastSession(t, d, session.Params{})

		res, err := MouseAction(ctx, s, button, MouseMove, MouseOptions{})
		require.NoError(t, err)
		assert.True(t, res.OK())
		assert.Equal(t, []browser.PointerAction{browser.MoveTo(20, 20)}, d.PointerActions())
		assert.Len(t, d.ScriptCalls(), 1)
	})

	t.Run("down then click keeping focus", func(t *testing.T) {
		d := browsertest.New("chrome").Put(button, el)
		s := fastSession(t, d, session.Params{})

		_, err := MouseAction(ctx, s, button, MouseDown, MouseOptions{Click: true, KeepFocus: true})
		require.NoError(t, err)
		assert.Equal(t, []browser.PointerAction{browser.MoveTo(20, 20), browser.Press()}, d.PointerActions())
		assert.Len(t, d.ClickedLocators(), 1)
		assert.Empty(t, d.ScriptCalls())
	})

	t.Run("firefox up dispatches a script event", func(t *testing.T) {
		d := browsertest.New("firefox").Put(button, el)
		d.OnScript = browsertest.ScriptContains("dispatchEvent", true)
		s := fastSession(t, d, session.Params{})

		res, err := MouseAction(ctx, s, button, MouseUp, MouseOptions{KeepFocus: true})
		require.NoError(t, err)
		assert.True(t, res.OK())
		calls := d.ScriptCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, []interface{}{"mouseup"}, calls[0].Args)
	})

	t.Run("unknown action moves", func(t *testing.T) {
		d := browsertest.New("chrome").Put(button, el)
		s := fastSession(t, d, session.Params{})

		_, err := MouseAction(ctx, s, button, MouseActionType("hover"), MouseOptions{KeepFocus: true})
		require.NoError(t, err)
		assert.Equal(t, []browser.PointerAction{browser.MoveTo(20, 20)}, d.PointerActions())
	})
}

func TestGetKeyboardKeys(t *testing.T) {
	tests := []struct {
		op   KeyOp
		osx  bool
		want Chord
	}{
		{Copy, false, Chord{browser.KeyControl, "c"}},
		{Paste, false, Chord{browser.KeyControl, "v"}},
		{Cut, false, Chord{browser.KeyControl, "x"}},
		{Copy, true, Chord{browser.KeyControl, browser.KeyInsert}},
		{Paste, true, Chord{browser.KeyShift, browser.KeyInsert}},
		{Cut, true, Chord{browser.KeyShift, browser.KeyDelete}},
		{KeyOp("PASTE"), false, Chord{browser.KeyControl, "v"}},
	}
	d := browsertest.New("chrome")
	for _, tt := range tests {
		s := fastSession(t, d, session.Params{OSX: tt.osx})
		got, err := GetKeyboardKeys(s, tt.op)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "op %s osx %v", tt.op, tt.osx)
	}

	_, err := GetKeyboardKeys(fastSession(t, d, session.Params{}), KeyOp("undo"))
	assert.ErrorIs(t, err, ErrUnknownKeyOp)
}

func TestPressChord(t *testing.T) {
	d := browsertest.New("chrome")
	s := fastSession(t, d, session.Params{OSX: true})

	require.NoError(t, PressChord(context.Background(), s, Cut))
	assert.Equal(t, [][]browser.Key{{browser.KeyShift, browser.KeyDelete}}, d.PressedChords())

	assert.ErrorIs(t, PressChord(context.Background(), s, KeyOp("select-all")), ErrUnknownKeyOp)
}

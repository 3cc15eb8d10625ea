package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
)

var cartButton = browser.CSS(`a[class="Button"]`)

func newSession(t *testing.T, d browser.Driver, p Params) *Session {
	t.Helper()
	s, err := New(context.Background(), d, Options{Params: p, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	t.Run("family from driver capabilities", func(t *testing.T) {
		s := newSession(t, browsertest.New("Firefox"), Params{})
		assert.Equal(t, "firefox", s.BrowserName())
		assert.Equal(t, "firefox", s.Family().Name())
		assert.NotEmpty(t, s.ID())
		assert.Equal(t, DefaultDelays(), s.Delays())
	})

	t.Run("params override the reported browser", func(t *testing.T) {
		s := newSession(t, browsertest.New("chrome"), Params{BrowserName: "safari"})
		assert.Equal(t, "safari", s.Family().Name())
	})

	t.Run("explicit family wins", func(t *testing.T) {
		s, err := New(context.Background(), browsertest.New("chrome"), Options{Family: FamilyFor("ie")})
		require.NoError(t, err)
		assert.Equal(t, "ie", s.Family().Name())
	})

	t.Run("driver error is reported", func(t *testing.T) {
		d := browsertest.New("chrome")
		d.Errs["BrowserName"] = errors.New("no capabilities")
		_, err := New(context.Background(), d, Options{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no capabilities")
	})

	t.Run("nil driver", func(t *testing.T) {
		_, err := New(context.Background(), nil, Options{})
		assert.Error(t, err)
	})

	t.Run("each session gets its own id", func(t *testing.T) {
		a := newSession(t, browsertest.New("chrome"), Params{})
		b := newSession(t, browsertest.New("chrome"), Params{})
		assert.NotEqual(t, a.ID(), b.ID())
	})
}

func TestSession_Sleep(t *testing.T) {
	s := newSession(t, browsertest.New("chrome"), Params{})

	start := time.Now()
	require.NoError(t, s.Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Sleep(ctx, time.Hour), context.Canceled)
}

func TestSession_Close(t *testing.T) {
	d := browsertest.New("chrome")
	s := newSession(t, d, Params{})
	require.NoError(t, s.Close(context.Background()))
	assert.True(t, d.Closed)

	d.Errs["Quit"] = errors.New("already gone")
	assert.Error(t, s.Close(context.Background()))
}

func TestFamilyFor(t *testing.T) {
	tests := map[string]string{
		"chrome":            "chrome",
		"firefox":           "firefox",
		"safari":            "safari",
		"ie":                "ie",
		"internet explorer": "ie",
		"microsoftedge":     "edge",
		"opera":             "default",
		"":                  "default",
	}
	for in, want := range tests {
		assert.Equal(t, want, FamilyFor(in).Name(), "FamilyFor(%q)", in)
	}
}

func TestFamily_ScrollArg(t *testing.T) {
	assert.Contains(t, FamilyFor("chrome").ScrollArg(), "behavior: 'smooth'")
	assert.Contains(t, FamilyFor("firefox").ScrollArg(), "behavior: 'auto'")
	assert.Contains(t, FamilyFor("edge").ScrollArg(), "block: 'nearest', inline: 'start'")
	assert.Equal(t, "false", FamilyFor("ie").ScrollArg())
}

func TestFamily_Click(t *testing.T) {
	t.Run("native click", func(t *testing.T) {
		d := browsertest.New("chrome").Put(cartButton, browsertest.Visible("Add to Cart"))
		require.NoError(t, FamilyFor("chrome").Click(context.Background(), d, cartButton))
		assert.Equal(t, []browser.Locator{cartButton}, d.ClickedLocators())
		assert.Empty(t, d.ScriptCalls())
	})

	t.Run("safari clicks from script", func(t *testing.T) {
		d := browsertest.New("safari")
		d.OnScript = browsertest.ScriptContains("el.click()", true)

		require.NoError(t, FamilyFor("safari").Click(context.Background(), d, cartButton.Nth(2)))
		assert.Empty(t, d.ClickedLocators())
		calls := d.ScriptCalls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Script, "[2] || null")
	})

	t.Run("safari script click failure", func(t *testing.T) {
		d := browsertest.New("safari")
		d.OnScript = browsertest.ScriptContains("el.click()", false)

		err := FamilyFor("safari").Click(context.Background(), d, cartButton)
		require.ErrorIs(t, err, ErrScriptClick)
		assert.Contains(t, err.Error(), "Click Error!\n")
	})
}

func TestFamily_Mouse(t *testing.T) {
	el := browsertest.Visible("Dogs")
	el.Rect = browser.Rect{X: 100, Y: 40, Width: 20, Height: 10}

	t.Run("native families use pointer actions", func(t *testing.T) {
		d := browsertest.New("chrome").Put(cartButton, el)
		f := FamilyFor("chrome")
		ctx := context.Background()

		require.NoError(t, f.MouseMove(ctx, d, cartButton))
		require.NoError(t, f.MouseDown(ctx, d, cartButton))
		require.NoError(t, f.MouseUp(ctx, d, cartButton))

		assert.Equal(t, []browser.PointerAction{
			browser.MoveTo(110, 45),
			browser.MoveTo(110, 45), browser.Press(),
			browser.MoveTo(110, 45), browser.Release(),
		}, d.PointerActions())
	})

	t.Run("native mouse on a missing element", func(t *testing.T) {
		d := browsertest.New("chrome")
		err := FamilyFor("edge").MouseMove(context.Background(), d, cartButton)
		assert.ErrorIs(t, err, browser.ErrNoSuchElement)
	})

	t.Run("firefox dispatches script events", func(t *testing.T) {
		d := browsertest.New("firefox")
		d.OnScript = browsertest.ScriptContains("dispatchEvent", true)
		f := FamilyFor("firefox")
		ctx := context.Background()

		require.NoError(t, f.MouseMove(ctx, d, cartButton))
		require.NoError(t, f.MouseDown(ctx, d, cartButton))
		require.NoError(t, f.MouseUp(ctx, d, cartButton))

		assert.Empty(t, d.PointerActions())
		calls := d.ScriptCalls()
		require.Len(t, calls, 3)
		assert.Equal(t, []interface{}{"mousemove"}, calls[0].Args)
		assert.Equal(t, []interface{}{"mousedown"}, calls[1].Args)
		assert.Equal(t, []interface{}{"mouseup"}, calls[2].Args)
	})

	t.Run("firefox reports a missing element", func(t *testing.T) {
		d := browsertest.New("firefox")
		d.OnScript = browsertest.ScriptContains("dispatchEvent", false)
		err := FamilyFor("firefox").MouseDown(context.Background(), d, cartButton)
		assert.ErrorIs(t, err, browser.ErrNoSuchElement)
	})
}

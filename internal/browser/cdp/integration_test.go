package cdp

import (
	"context"
	"net/url"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/capabilities"
)

const fixturePage = `<html><head><title>JPetStore Demo</title></head><body>
<div id="Header">Sign In</div>
<a class="Button" href="#one">Add to Cart</a>
<a class="Button" href="#two" style="display:none">Hidden</a>
<button id="go" disabled>Proceed to Checkout</button>
<input id="q" onclick="this.value='clicked'">
</body></html>`

func findChrome(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	t.Skip("Chrome is not installed")
	return ""
}

func TestLaunch_Integration(t *testing.T) {
	binary := findChrome(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := capabilities.Select("chrome", capabilities.Options{Headless: true})
	require.NoError(t, err)
	d, err := Launch(ctx, c, binary, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, d.Quit(context.Background())) }()

	require.NoError(t, d.Navigate(ctx, "data:text/html,"+url.PathEscape(fixturePage)))

	title, err := d.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "JPetStore Demo", title)

	buttons := browser.CSS(`a[class="Button"]`)
	n, err := d.Count(ctx, buttons)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	shown, err := d.Displayed(ctx, buttons.Nth(1))
	require.NoError(t, err)
	assert.False(t, shown)

	enabled, err := d.Enabled(ctx, browser.ID("go"))
	require.NoError(t, err)
	assert.False(t, enabled)

	_, err = d.Text(ctx, buttons.Nth(5))
	assert.ErrorIs(t, err, browser.ErrNoSuchElement)

	require.NoError(t, d.Click(ctx, browser.ID("q")))
	value, err := d.Execute(ctx, "return document.getElementById(arguments[0]).value;", "q")
	require.NoError(t, err)
	assert.Equal(t, "clicked", value)

	require.NoError(t, d.DeleteAllCookies(ctx))
}

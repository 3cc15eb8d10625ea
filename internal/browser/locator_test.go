package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocator_Nth(t *testing.T) {
	base := CSS(`a[class="Button"]`)
	third := base.Nth(2)

	assert.Equal(t, 0, base.Index, "Nth must not mutate the receiver")
	assert.Equal(t, 2, third.Index)
	assert.Equal(t, base.Selector, third.Selector)
	assert.Equal(t, `css=a[class="Button"][2]`, third.String())
}

func TestLocator_CSSSelector(t *testing.T) {
	tests := []struct {
		loc    Locator
		want   string
		wantOK bool
	}{
		{CSS("div#Cart"), "div#Cart", true},
		{Tag("body"), "body", true},
		{Class("Button"), `[class~="Button"]`, true},
		{ID("Header"), `[id="Header"]`, true},
		{XPath("//a"), "", false},
	}
	for _, tt := range tests {
		got, ok := tt.loc.CSSSelector()
		assert.Equal(t, tt.wantOK, ok, tt.loc.String())
		assert.Equal(t, tt.want, got, tt.loc.String())
	}
}

func TestLocator_JS(t *testing.T) {
	t.Run("css selector is escaped", func(t *testing.T) {
		js := CSS(`div[id="Header"]`).Nth(1).JS()
		assert.Equal(t, `((Array.from(document.querySelectorAll("div[id=\"Header\"]")))[1] || null)`, js)
	})

	t.Run("strategies use their DOM lookups", func(t *testing.T) {
		assert.Contains(t, Tag("body").JSAll(), `getElementsByTagName("body")`)
		assert.Contains(t, Class("Button").JSAll(), `getElementsByClassName("Button")`)
		assert.Contains(t, ID("Cart").JSAll(), `getElementById("Cart")`)
		assert.Contains(t, XPath("//td/a").JSAll(), `document.evaluate`)
		assert.Contains(t, XPath("//td/a").JSAll(), `"//td/a"`)
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "Control", KeyControl.Name())
	assert.Equal(t, "ControlLeft", KeyControl.Code())
	assert.Equal(t, int64(17), KeyControl.VirtualKeyCode())
	assert.True(t, KeyShift.IsModifier())
	assert.False(t, KeyInsert.IsModifier())

	c := Key("c")
	assert.Equal(t, "c", c.Name())
	assert.Equal(t, "KeyC", c.Code())
	assert.Equal(t, int64('C'), c.VirtualKeyCode())
	assert.False(t, c.IsModifier())

	assert.Equal(t, "Digit7", Key("7").Code())
	assert.Equal(t, "", Key("?").Code())
}

func TestRect_Center(t *testing.T) {
	x, y := Rect{X: 10, Y: 20, Width: 100, Height: 50}.Center()
	assert.Equal(t, 60.0, x)
	assert.Equal(t, 45.0, y)
}

package wait

import (
	"context"
	"fmt"
	"strings"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

// Condition is a named predicate over the live page. Check returning an
// error wrapping browser.ErrNoSuchElement counts as "not yet"; any other
// error ends the wait.
type Condition struct {
	Name  string
	Check func(ctx context.Context, d browser.Driver) (bool, error)
}

// Kind names the element conditions accepted by Waiter.For.
type Kind string

const (
	KindPresent    Kind = "present"
	KindVisible    Kind = "visible"
	KindEnabled    Kind = "enabled"
	KindNotVisible Kind = "not-visible"
)

// Present holds once the targeted element exists in the DOM.
func Present(loc browser.Locator) Condition {
	return Condition{
		Name: fmt.Sprintf("present(%s)", loc),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			return present(ctx, d, loc)
		},
	}
}

// Visible holds once the targeted element exists and is displayed.
func Visible(loc browser.Locator) Condition {
	return Condition{
		Name: fmt.Sprintf("visible(%s)", loc),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			return d.Displayed(ctx, loc)
		},
	}
}

// Clickable holds once the targeted element is displayed and enabled.
func Clickable(loc browser.Locator) Condition {
	return Condition{
		Name: fmt.Sprintf("clickable(%s)", loc),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			shown, err := d.Displayed(ctx, loc)
			if err != nil || !shown {
				return false, err
			}
			return d.Enabled(ctx, loc)
		},
	}
}

// NotVisible holds when the targeted element is absent or hidden.
func NotVisible(loc browser.Locator) Condition {
	return Condition{
		Name: fmt.Sprintf("not-visible(%s)", loc),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			ok, err := present(ctx, d, loc)
			if err != nil || !ok {
				return !ok, err
			}
			shown, err := d.Displayed(ctx, loc)
			if err != nil {
				return false, err
			}
			return !shown, nil
		},
	}
}

// ContainsText holds once the targeted element's trimmed, lowercased text
// contains the trimmed, lowercased expected text.
func ContainsText(loc browser.Locator, expected string) Condition {
	want := normalize(expected)
	return Condition{
		Name: fmt.Sprintf("contains-text(%s, %q)", loc, expected),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			text, err := d.Text(ctx, loc)
			if err != nil {
				return false, err
			}
			return strings.Contains(normalize(text), want), nil
		},
	}
}

// URLIs holds once the current URL equals url.
func URLIs(url string) Condition {
	return Condition{
		Name: fmt.Sprintf("url(%s)", url),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			current, err := d.CurrentURL(ctx)
			return current == url, err
		},
	}
}

// URLContains holds once the current URL contains fragment.
func URLContains(fragment string) Condition {
	return Condition{
		Name: fmt.Sprintf("url-contains(%s)", fragment),
		Check: func(ctx context.Context, d browser.Driver) (bool, error) {
			current, err := d.CurrentURL(ctx)
			return strings.Contains(current, fragment), err
		},
	}
}

func present(ctx context.Context, d browser.Driver, loc browser.Locator) (bool, error) {
	n, err := d.Count(ctx, loc)
	if err != nil {
		return false, err
	}
	return loc.Index < n, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

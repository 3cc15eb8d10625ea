package interact

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

const scrollScript = `var el = %s;
if (!el) { return false; }
el.scrollIntoView(%s);
return true;`

// ScrollToView scrolls the n-th element with the given tag name into view.
func ScrollToView(ctx context.Context, s *session.Session, tag string, n int) wait.Result {
	return ScrollToElement(ctx, s, browser.Tag(tag).Nth(n))
}

// ScrollToViewByClass scrolls the n-th element with the given class into view.
func ScrollToViewByClass(ctx context.Context, s *session.Session, class string, n int) wait.Result {
	return ScrollToElement(ctx, s, browser.Class(class).Nth(n))
}

// ScrollToViewByID scrolls the element with the given id into view.
func ScrollToViewByID(ctx context.Context, s *session.Session, id string) wait.Result {
	return ScrollToElement(ctx, s, browser.ID(id))
}

// ScrollToElement scrolls loc into view using the family's scroll options and
// then waits for the settle delay. It never fails the caller.
func ScrollToElement(ctx context.Context, s *session.Session, loc browser.Locator) wait.Result {
	start := time.Now()
	script := fmt.Sprintf(scrollScript, loc.JS(), s.Family().ScrollArg())
	res, err := s.Driver().Execute(ctx, script)
	if err == nil {
		if ok, _ := res.(bool); !ok {
			err = fmt.Errorf("%s: %w", loc, browser.ErrNoSuchElement)
		}
	}
	if err == nil {
		err = s.Sleep(ctx, s.Delays().Settle)
	}

	r := wait.Attempt(fmt.Sprintf("scroll(%s)", loc), start, err)
	if !r.OK() {
		s.Logger().Debug("Scroll skipped.", zap.Stringer("locator", loc), zap.Error(err))
	}
	return r
}

package interact

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

const (
	defaultDomain = "com"
	defaultEnv    = "stage"
	// drainShare is the fraction (1/drainShare) of the storage clear budget
	// kept for the step in flight to return.
	drainShare = 5
)

// GetPageURL returns the current URL, lowercased if requested.
func GetPageURL(ctx context.Context, s *session.Session, lowercase bool) (string, error) {
	u, err := s.Driver().CurrentURL(ctx)
	if err != nil {
		return "", err
	}
	if lowercase {
		u = strings.ToLower(u)
	}
	return u, nil
}

// CheckRedirectionToLink waits for the URL to contain link and then asserts
// that it does.
func CheckRedirectionToLink(ctx context.Context, t require.TestingT, s *session.Session, link string) {
	helper(t)
	s.Waiter().URLContains(ctx, link)
	u, err := GetPageURL(ctx, s, false)
	require.NoError(t, err, "cannot read current URL")
	require.True(t, strings.Contains(u, link), "%s does not exists in URL %s", link, u)
}

// expireCookiesScript expires every readable cookie for each parent domain and
// path prefix of the current location.
const expireCookiesScript = `var cookies = document.cookie.split("; ");
for (var c = 0; c < cookies.length; c++) {
  var d = window.location.hostname.split(".");
  while (d.length > 0) {
    var base = encodeURIComponent(cookies[c].split(";")[0].split("=")[0]) +
      '=; expires=Thu, 01 Jan 1970 00:00:00 UTC; domain=' + d.join('.') + ' ;path=';
    var p = location.pathname.split('/');
    document.cookie = base + '/';
    while (p.length > 0) { document.cookie = base + p.join('/'); p.pop(); }
    d.shift();
  }
}`

const expireRootCookiesScript = `document.cookie.split(";").forEach(function(c) {
  document.cookie = c.replace(/^ +/, "").replace(/=.*/, "=;expires=Thu, 01 Jan 1970 00:00:00 UTC;path=/");
});`

// DeleteAllBrowserData clears cookies, session storage and local storage.
// It returns within the session's storage clear budget whatever the page does;
// a step that fails does not stop the ones after it.
//
// The steps stop being issued a fifth of the budget early and the rest of it
// is spent waiting for the step in flight, so a backend that honours its
// context is idle again when this returns. A backend call that ignores its
// context can still be running after the budget; the result is then TimedOut.
func DeleteAllBrowserData(ctx context.Context, s *session.Session) wait.Result {
	start := time.Now()
	budget := s.Delays().StorageClearBudget
	budgetCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	stepsCtx, cancelSteps := context.WithTimeout(budgetCtx, budget-budget/drainShare)
	defer cancelSteps()

	d := s.Driver()
	steps := []func(context.Context) error{
		func(ctx context.Context) error { _, err := d.Execute(ctx, expireCookiesScript); return err },
		d.DeleteAllCookies,
		func(ctx context.Context) error { _, err := d.Execute(ctx, "window.sessionStorage.clear();"); return err },
		func(ctx context.Context) error { _, err := d.Execute(ctx, "window.localStorage.clear();"); return err },
		func(ctx context.Context) error { _, err := d.Execute(ctx, expireRootCookiesScript); return err },
	}

	done := make(chan error, 1)
	go func() {
		var errs []error
		for _, step := range steps {
			if err := stepsCtx.Err(); err != nil {
				errs = append(errs, err)
				break
			}
			if err := step(stepsCtx); err != nil {
				errs = append(errs, err)
			}
		}
		done <- errors.Join(errs...)
	}()

	var res wait.Result
	select {
	case err := <-done:
		res = wait.Attempt("delete-browser-data", start, err)
	case <-budgetCtx.Done():
		res = wait.Attempt("delete-browser-data", start, budgetCtx.Err())
		s.Logger().Warn("Browser data step still running after the clear budget.", zap.Duration("budget", budget))
	}
	if !res.OK() {
		s.Logger().Debug("Browser data not fully cleared.", zap.Stringer("outcome", res.Outcome), zap.Error(res.Cause))
	}
	return res
}

// GetBrowserName returns the browser name from the live capabilities.
func GetBrowserName(ctx context.Context, s *session.Session) (string, error) {
	return s.Driver().BrowserName(ctx)
}

// GetCurrentDomain returns the configured top-level domain, "com" by default.
func GetCurrentDomain(s *session.Session) string {
	if d := strings.TrimSpace(s.Params().DomainName); d != "" {
		return d
	}
	return defaultDomain
}

// GetEnv returns dev, stage or prod. An explicit env parameter wins; otherwise
// the base URL host prefix decides, defaulting to stage.
func GetEnv(s *session.Session) string {
	p := s.Params()
	if env := strings.ToLower(strings.TrimSpace(p.Env)); env != "" {
		return env
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return defaultEnv
	}
	host := strings.ToLower(u.Hostname())
	for _, env := range []string{"dev", "stage", "prod"} {
		if strings.HasPrefix(host, env+".") {
			return env
		}
	}
	return defaultEnv
}

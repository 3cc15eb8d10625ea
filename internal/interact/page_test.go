package interact

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

const catalogURL = "https://petstore.octoperf.com/actions/Catalog.action"

func TestGetPageURL(t *testing.T) {
	d := browsertest.New("chrome")
	d.URL = "https://PetStore.OctoPerf.com/Actions/Catalog.action"
	s := fastSession(t, d, session.Params{})

	u, err := GetPageURL(context.Background(), s, false)
	require.NoError(t, err)
	assert.Equal(t, d.URL, u)

	u, err = GetPageURL(context.Background(), s, true)
	require.NoError(t, err)
	assert.Equal(t, "https://petstore.octoperf.com/actions/catalog.action", u)
}

func TestCheckRedirectionToLink(t *testing.T) {
	ctx := context.Background()

	t.Run("url eventually contains link", func(t *testing.T) {
		d := browsertest.New("chrome")
		s := fastSession(t, d, session.Params{})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			d.Mutate(func(d *browsertest.Driver) { d.URL = catalogURL + "?viewCategory=&categoryId=DOGS" })
		}()

		_, failed := capture(func(rt require.TestingT) {
			CheckRedirectionToLink(ctx, rt, s, "categoryId=DOGS")
		})
		wg.Wait()
		assert.False(t, failed)
	})

	t.Run("url never contains link", func(t *testing.T) {
		d := browsertest.New("chrome")
		d.URL = catalogURL
		s := fastSession(t, d, session.Params{})

		rec, failed := capture(func(rt require.TestingT) {
			CheckRedirectionToLink(ctx, rt, s, "Cart.action")
		})
		assert.True(t, failed)
		assert.Contains(t, rec.messages(), "Cart.action does not exists in URL "+catalogURL)
	})
}

func TestDeleteAllBrowserData(t *testing.T) {
	ctx := context.Background()

	t.Run("clears everything", func(t *testing.T) {
		d := browsertest.New("chrome")
		d.Cookies["JSESSIONID"] = "abc"
		s := fastSession(t, d, session.Params{})

		res := DeleteAllBrowserData(ctx, s)
		assert.Equal(t, wait.Met, res.Outcome)
		assert.Empty(t, d.Cookies)

		calls := d.ScriptCalls()
		require.Len(t, calls, 4)
		assert.Contains(t, calls[1].Script, "sessionStorage.clear()")
		assert.Contains(t, calls[2].Script, "localStorage.clear()")
	})

	t.Run("throwing scripts do not stop later steps", func(t *testing.T) {
		d := browsertest.New("chrome")
		d.Cookies["JSESSIONID"] = "abc"
		d.OnScript = func(context.Context, *browsertest.Driver, string, []interface{}) (interface{}, error) {
			return nil, errors.New("SecurityError: access denied")
		}
		s := fastSession(t, d, session.Params{})

		res := DeleteAllBrowserData(ctx, s)
		assert.Equal(t, wait.Errored, res.Outcome)
		assert.ErrorContains(t, res.Err(), "SecurityError")
		assert.Empty(t, d.Cookies)
		assert.Len(t, d.ScriptCalls(), 4)
	})

	t.Run("hanging script is bounded by the budget", func(t *testing.T) {
		d := browsertest.New("chrome")
		d.OnScript = func(ctx context.Context, _ *browsertest.Driver, _ string, _ []interface{}) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		s := fastSession(t, d, session.Params{})

		start := time.Now()
		res := DeleteAllBrowserData(ctx, s)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, wait.TimedOut, res.Outcome)
		assert.ErrorIs(t, res.Err(), context.DeadlineExceeded)
	})

	t.Run("in-flight script returns before the helper does", func(t *testing.T) {
		d := browsertest.New("chrome")
		var mu sync.Mutex
		running := 0
		d.OnScript = func(ctx context.Context, _ *browsertest.Driver, _ string, _ []interface{}) (interface{}, error) {
			mu.Lock()
			running++
			mu.Unlock()
			defer func() {
				mu.Lock()
				running--
				mu.Unlock()
			}()
			<-ctx.Done()
			// The page takes a moment to settle once the command is abandoned.
			time.Sleep(5 * time.Millisecond)
			return nil, ctx.Err()
		}
		s := fastSession(t, d, session.Params{})

		res := DeleteAllBrowserData(ctx, s)
		assert.Equal(t, wait.TimedOut, res.Outcome)
		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, running, "no script may still be running on the session")
	})

	t.Run("script ignoring its context is still bounded", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		d := browsertest.New("chrome")
		d.OnScript = func(context.Context, *browsertest.Driver, string, []interface{}) (interface{}, error) {
			<-release
			return nil, nil
		}
		s := fastSession(t, d, session.Params{})

		start := time.Now()
		res := DeleteAllBrowserData(ctx, s)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, wait.TimedOut, res.Outcome)
	})
}

func TestGetBrowserName(t *testing.T) {
	s := fastSession(t, browsertest.New("MicrosoftEdge"), session.Params{BrowserName: "edge"})
	name, err := GetBrowserName(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "MicrosoftEdge", name)
}

func TestGetCurrentDomain(t *testing.T) {
	d := browsertest.New("chrome")
	assert.Equal(t, "com", GetCurrentDomain(fastSession(t, d, session.Params{})))
	assert.Equal(t, "com", GetCurrentDomain(fastSession(t, d, session.Params{DomainName: "  "})))
	assert.Equal(t, "de", GetCurrentDomain(fastSession(t, d, session.Params{DomainName: "de"})))
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name   string
		params session.Params
		want   string
	}{
		{"default", session.Params{}, "stage"},
		{"public host", session.Params{BaseURL: catalogURL}, "stage"},
		{"dev host", session.Params{BaseURL: "https://dev.petstore.example.com/actions"}, "dev"},
		{"prod host", session.Params{BaseURL: "https://PROD.petstore.example.com"}, "prod"},
		{"explicit env wins", session.Params{Env: "Prod", BaseURL: "https://dev.petstore.example.com"}, "prod"},
		{"unparseable url", session.Params{BaseURL: "://bad"}, "stage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fastSession(t, browsertest.New("chrome"), tt.params)
			assert.Equal(t, tt.want, GetEnv(s))
		})
	}
}

package interact

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	button = browser.CSS(`a[class="Button"]`)
	header = browser.CSS(`div[id="Header"]`)
)

func fastSession(t *testing.T, d browser.Driver, p session.Params) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), d, session.Options{
		Params:   p,
		Logger:   zaptest.NewLogger(t),
		Timeouts: wait.Timeouts{URL: 60 * time.Millisecond, Element: 60 * time.Millisecond, Text: 60 * time.Millisecond, Poll: 5 * time.Millisecond},
		Delays: session.Delays{
			Settle:             time.Millisecond,
			Blur:               time.Millisecond,
			Input:              time.Millisecond,
			StorageClearBudget: 100 * time.Millisecond,
		},
	})
	require.NoError(t, err)
	return s
}

// recorder is a require.TestingT that turns FailNow into a recoverable panic.
type recorder struct {
	mu     sync.Mutex
	errors []string
}

type failNow struct{}

func (r *recorder) Errorf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, fmt.Sprintf(format, args...))
}

func (r *recorder) FailNow() { panic(failNow{}) }

func (r *recorder) messages() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.errors, "\n")
}

// capture runs fn and reports whether it failed a hard assertion.
func capture(fn func(t require.TestingT)) (rec *recorder, failed bool) {
	rec = &recorder{}
	func() {
		defer func() {
			if v := recover(); v != nil {
				if _, ok := v.(failNow); !ok {
					panic(v)
				}
				failed = true
			}
		}()
		fn(rec)
	}()
	return rec, failed
}

func buttons(texts ...string) []*browsertest.Element {
	out := make([]*browsertest.Element, len(texts))
	for i, text := range texts {
		out[i] = browsertest.Visible(text)
	}
	return out
}

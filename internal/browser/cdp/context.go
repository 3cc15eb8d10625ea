package cdp

import (
	"context"
	"time"
)

// CombineContext returns a context derived from primary (keeping its values,
// which carry the CDP target) that is also canceled when op is done.
func CombineContext(primary, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-op.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

// valueOnlyContext keeps the parent's values but drops its deadline and cancellation.
type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with ctx's values that is never canceled. Teardown
// uses it so the browser can be closed after the session context ends.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}

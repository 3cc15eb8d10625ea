package scenario

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// T is the hard-assertion handle passed to a step. It satisfies
// require.TestingT and assert.TestingT.
//
// FailNow ends the calling goroutine, so it must only be called from the
// goroutine running the step.
type T struct {
	name   string
	logger *zap.Logger

	mu       sync.Mutex
	failed   bool
	failures []string
}

func newT(name string, logger *zap.Logger) *T {
	return &T{name: name, logger: logger}
}

// Name returns the step name.
func (t *T) Name() string { return t.name }

// Errorf records a failure and lets the step continue.
func (t *T) Errorf(format string, args ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, args...))
	t.mu.Lock()
	t.failed = true
	t.failures = append(t.failures, msg)
	t.mu.Unlock()
	t.logger.Debug("Assertion failed.", zap.String("step", t.name), zap.String("message", msg))
}

// Fail marks the step failed without a message.
func (t *T) Fail() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

// FailNow marks the step failed and stops it.
func (t *T) FailNow() {
	t.Fail()
	runtime.Goexit()
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Logf writes an informational message to the run log.
func (t *T) Logf(format string, args ...interface{}) {
	t.logger.Info(fmt.Sprintf(format, args...), zap.String("step", t.name))
}

// Helper is a no-op; it exists so assertion libraries can mark helpers.
func (t *T) Helper() {}

// Failed reports whether the step has failed.
func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Failure returns every recorded message joined by newlines.
func (t *T) Failure() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.failures, "\n")
}

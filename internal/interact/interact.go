// Package interact composes waits, scrolling, assertions and actions into the
// single-call helpers used by scenario steps.
//
// Helpers come in two tiers. Best-effort helpers never fail the caller; they
// return a wait.Result describing what happened. Hard helpers take a
// require.TestingT and stop the current step when their assertion fails.
package interact

import (
	"errors"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
)

var (
	// ErrUnknownMatchType is returned for a match type other than equals, includes or endsWith.
	ErrUnknownMatchType = errors.New("Unknown matchType parameter passed")
	// ErrUnknownKeyOp is returned for a clipboard operation other than copy, paste or cut.
	ErrUnknownKeyOp = errors.New("unknown keyboard operation")
	// ErrFocus is returned when a scripted focus fails.
	ErrFocus = errors.New("Cannot focus on element!")
	// ErrScriptClick is returned when a scripted click fails.
	ErrScriptClick = session.ErrScriptClick
)

type tHelper interface {
	Helper()
}

func helper(t require.TestingT) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
}

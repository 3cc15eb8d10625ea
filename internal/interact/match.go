package interact

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
)

// MatchType selects how element text is compared.
type MatchType string

const (
	Equals   MatchType = "equals"
	Includes MatchType = "includes"
	EndsWith MatchType = "endsWith"
)

// Valid reports whether m is a recognized match type.
func (m MatchType) Valid() bool {
	switch m {
	case Equals, Includes, EndsWith:
		return true
	}
	return false
}

// Match reports whether text satisfies m against want after both are trimmed
// and lowercased.
func (m MatchType) Match(text, want string) bool {
	text, want = normalize(text), normalize(want)
	switch m {
	case Equals:
		return text == want
	case Includes:
		return strings.Contains(text, want)
	case EndsWith:
		return strings.HasSuffix(text, want)
	default:
		return false
	}
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// GetMatchingTextElmNo returns the index of the first element matched by loc
// whose text satisfies matchType against text, or 0 when none does.
// With assert set, the text at the returned index is checked again through t
// so a fallback to 0 cannot go unnoticed.
func GetMatchingTextElmNo(ctx context.Context, t require.TestingT, s *session.Session, loc browser.Locator, text string, matchType MatchType, assert bool) (int, error) {
	helper(t)
	if !matchType.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMatchType, matchType)
	}

	d := s.Driver()
	count, err := d.Count(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", loc, err)
	}

	idx := 0
	for i := 0; i < count; i++ {
		got, err := d.Text(ctx, loc.Nth(i))
		if err != nil {
			s.Logger().Debug("Skipping element with unreadable text.", zap.Stringer("locator", loc.Nth(i)), zap.Error(err))
			continue
		}
		if matchType.Match(got, text) {
			idx = i
			break
		}
	}

	if assert {
		got, err := d.Text(ctx, loc.Nth(idx))
		require.NoError(t, err, "cannot read text of %s", loc.Nth(idx))
		got, want := normalize(got), normalize(text)
		switch matchType {
		case Equals:
			require.Equal(t, want, got)
		case Includes:
			require.Contains(t, got, want)
		case EndsWith:
			require.True(t, strings.HasSuffix(got, want), "Text %q do not ends with %q", got, want)
		}
	}
	return idx, nil
}

// GetVisibleElmNo returns the index of the first displayed element matched by
// loc, or 0 when none is displayed.
func GetVisibleElmNo(ctx context.Context, s *session.Session, loc browser.Locator) (int, error) {
	d := s.Driver()
	count, err := d.Count(ctx, loc)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", loc, err)
	}
	for i := 0; i < count; i++ {
		shown, err := d.Displayed(ctx, loc.Nth(i))
		if err == nil && shown {
			return i, nil
		}
	}
	return 0, nil
}

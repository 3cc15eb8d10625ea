package petstore

import (
	"context"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/interact"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

const (
	// PurchaseSpecName is the name of the purchase-flow spec.
	PurchaseSpecName = "store.purchase"
	// HomeTitle is the document title of the catalog home page.
	HomeTitle = "JPetStore Demo"
	// DefaultCheckoutPause is how long the flow lingers on the checkout page.
	DefaultCheckoutPause = 3 * time.Second
)

// PurchaseFlow walks from the catalog home page through a dog breed into the
// cart and on to checkout.
type PurchaseFlow struct {
	BaseURL       string
	CheckoutPause time.Duration
}

// Specs returns every spec for the site.
func Specs(baseURL string) []scenario.Spec {
	return []scenario.Spec{
		PurchaseFlow{BaseURL: baseURL, CheckoutPause: DefaultCheckoutPause}.Spec(),
	}
}

// Spec builds the ordered steps. Each call gets its own state.
func (f PurchaseFlow) Spec() scenario.Spec {
	var breedLink string

	return scenario.Spec{
		Name:      PurchaseSpecName,
		OnPrepare: scenario.DisableImplicitWait,
		Steps: []scenario.Step{
			{
				Name: "User navigates to pet store homepage.",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					require.NoError(t, s.Driver().Navigate(ctx, f.BaseURL))
					interact.CheckRedirectionToLink(ctx, t, s, f.BaseURL)
					title, err := s.Driver().Title(ctx)
					require.NoError(t, err)
					require.Equal(t, HomeTitle, title)
					s.Waiter().Visible(ctx, PageHeader)
				},
			},
			{
				Name: "user clicks on dogs tab",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					s.Waiter().Visible(ctx, PageHeader)
					interact.ElementAssertClick(ctx, t, s, DogsPageLink, interact.WithAssert(interact.AssertDisplayed))
				},
			},
			{
				Name: "user clicks on any breed",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					interact.ElementAssertClick(ctx, t, s, DogsPageBreed, interact.WithAssert(interact.AssertDisplayed), interact.NoClick())
					href, err := s.Driver().Attribute(ctx, DogsPageBreed, "href")
					require.NoError(t, err)
					require.NotEmpty(t, href, "breed link has no href")
					breedLink = href
					require.NoError(t, interact.ClickElement(ctx, s, DogsPageBreed))
				},
			},
			{
				Name: "user navigates to dog breed page",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					interact.CheckRedirectionToLink(ctx, t, s, breedLink)
					s.Waiter().Visible(ctx, PageHeader)
				},
			},
			{
				Name: "user clicks on add to cart for any breed",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					clickButton(ctx, t, s, "Add to cart")
				},
			},
			{
				Name: "user navigates to shopping cart",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					interact.ElementAssertClick(ctx, t, s, CartContainer, interact.WithAssert(interact.AssertDisplayed), interact.NoClick())
				},
			},
			{
				Name: "user clicks on Proceed to Checkout button",
				Run: func(ctx context.Context, t *scenario.T, s *session.Session) {
					clickButton(ctx, t, s, "Proceed to Checkout")
					require.NoError(t, s.Sleep(ctx, f.CheckoutPause))
				},
			},
		},
	}
}

// clickButton waits for the link buttons, then clicks the first one whose
// text equals label.
func clickButton(ctx context.Context, t *scenario.T, s *session.Session, label string) {
	interact.ElementAssertClick(ctx, t, s, LinkButton, interact.WithAssert(interact.AssertDisplayed), interact.NoClick())
	n, err := interact.GetMatchingTextElmNo(ctx, t, s, LinkButton, label, interact.Equals, true)
	require.NoError(t, err)
	interact.ElementAssertClick(ctx, t, s, LinkButton.Nth(n))
}

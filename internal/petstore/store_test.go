package petstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/petstore-e2e/internal/browser/browsertest"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/session"
	"github.com/xkilldash9x/petstore-e2e/internal/browser/wait"
	"github.com/xkilldash9x/petstore-e2e/internal/scenario"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	baseURL     = "https://petstore.octoperf.com/actions/Catalog.action"
	dogsURL     = baseURL + "?viewCategory=&categoryId=DOGS"
	breedURL    = baseURL + "?viewProduct=&productId=K9-BD-01"
	cartURL     = "https://petstore.octoperf.com/actions/Cart.action?addItemToCart=&workingItemId=EST-6"
	checkoutURL = "https://petstore.octoperf.com/actions/Order.action?newOrderForm="
)

func link(text, target string) *browsertest.Element {
	el := browsertest.Visible(text)
	el.Attrs = map[string]string{"href": target}
	el.OnClick = func(d *browsertest.Driver) { d.Goto(target) }
	return el
}

// petStore emulates the pages the purchase flow visits.
func petStore(title string) *browsertest.Driver {
	d := browsertest.New("chrome")
	page := func(setup func(d *browsertest.Driver)) func(d *browsertest.Driver) {
		return func(d *browsertest.Driver) {
			d.Clear()
			d.PageTitle = title
			d.Set(PageHeader, browsertest.Visible("Sign In"))
			setup(d)
		}
	}
	d.Route(baseURL, page(func(d *browsertest.Driver) {
		d.Set(DogsPageLink, link("", dogsURL))
	}))
	d.Route(dogsURL, page(func(d *browsertest.Driver) {
		d.Set(DogsPageBreed, link("K9-BD-01", breedURL), link("K9-PO-02", baseURL+"?viewProduct=&productId=K9-PO-02"))
	}))
	d.Route(breedURL, page(func(d *browsertest.Driver) {
		d.Set(LinkButton, link("Return to DOGS", dogsURL), link("Add to Cart", cartURL))
	}))
	d.Route(cartURL, page(func(d *browsertest.Driver) {
		d.Set(CartContainer, browsertest.Visible("Shopping Cart"))
		d.Set(LinkButton, link("Remove", cartURL), link("Proceed to Checkout", checkoutURL))
	}))
	d.Route(checkoutURL, page(func(d *browsertest.Driver) {}))
	return d
}

func newSession(t *testing.T, d *browsertest.Driver) *session.Session {
	t.Helper()
	s, err := session.New(context.Background(), d, session.Options{
		Logger:   zaptest.NewLogger(t),
		Params:   session.Params{BaseURL: baseURL},
		Timeouts: wait.Timeouts{URL: 100 * time.Millisecond, Element: 100 * time.Millisecond, Text: 100 * time.Millisecond, Poll: 5 * time.Millisecond},
		Delays:   session.Delays{Settle: time.Millisecond, Blur: time.Millisecond, Input: time.Millisecond, StorageClearBudget: 50 * time.Millisecond},
	})
	require.NoError(t, err)
	return s
}

func TestPurchaseFlow(t *testing.T) {
	d := petStore(HomeTitle)
	d.ImplicitWait = 10 * time.Second
	s := newSession(t, d)

	spec := PurchaseFlow{BaseURL: baseURL, CheckoutPause: time.Millisecond}.Spec()
	r := scenario.NewRunner(scenario.Options{FailFast: true, Logger: zaptest.NewLogger(t)})
	res := r.RunSpec(context.Background(), s, spec)

	for _, step := range res.Steps {
		assert.Equal(t, scenario.Passed, step.Status, "%s: %s", step.Name, step.Failure)
	}
	require.Len(t, res.Steps, 7)
	assert.False(t, res.Failed())
	assert.Equal(t, checkoutURL, d.URL)
	assert.Zero(t, d.ImplicitWait)

	clicks := d.ClickedLocators()
	require.Len(t, clicks, 4)
	assert.Equal(t, DogsPageLink, clicks[0])
	assert.Equal(t, DogsPageBreed, clicks[1])
	assert.Equal(t, LinkButton.Nth(1), clicks[2])
	assert.Equal(t, LinkButton.Nth(1), clicks[3])
}

func TestPurchaseFlow_WrongTitleStopsTheRun(t *testing.T) {
	d := petStore("Whitelabel Error Page")
	s := newSession(t, d)

	spec := PurchaseFlow{BaseURL: baseURL}.Spec()
	res := scenario.NewRunner(scenario.Options{FailFast: true}).RunSpec(context.Background(), s, spec)

	require.True(t, res.Failed())
	assert.Equal(t, scenario.Failed, res.Steps[0].Status)
	assert.Contains(t, res.Steps[0].Failure, HomeTitle)
	assert.Equal(t, 6, res.Count(scenario.Skipped))
	assert.Empty(t, d.ClickedLocators())
}

func TestPurchaseFlow_MissingCheckoutButton(t *testing.T) {
	d := petStore(HomeTitle)
	d.Route(cartURL, func(d *browsertest.Driver) {
		d.Clear()
		d.Set(PageHeader, browsertest.Visible("Sign In"))
		d.Set(CartContainer, browsertest.Visible("Your cart is empty."))
		d.Set(LinkButton, link("Remove", cartURL))
	})
	s := newSession(t, d)

	res := scenario.NewRunner(scenario.Options{FailFast: true}).RunSpec(context.Background(), s, PurchaseFlow{BaseURL: baseURL}.Spec())
	require.Len(t, res.Steps, 7)
	assert.Equal(t, scenario.Passed, res.Steps[5].Status)
	assert.Equal(t, scenario.Failed, res.Steps[6].Status)
	assert.Contains(t, res.Steps[6].Failure, "proceed to checkout")
}

func TestSpecs(t *testing.T) {
	specs := Specs(baseURL)
	require.Len(t, specs, 1)
	assert.Equal(t, PurchaseSpecName, specs[0].Name)
	assert.Len(t, specs[0].Steps, 7)
	assert.NotNil(t, specs[0].OnPrepare)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"CART_CONTAINER", "DOGS_PAGE_BREED", "DOGS_PAGE_LINK", "LINK_BUTTON", "PAGE_HEADER"}, Names())

	loc, ok := Lookup("LINK_BUTTON")
	require.True(t, ok)
	assert.Equal(t, `a[class="Button"]`, loc.Selector)

	_, ok = Lookup("SEARCH_BOX")
	assert.False(t, ok)
}

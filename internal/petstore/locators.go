// Package petstore holds the locators and specs for the JPetStore demo site.
package petstore

import (
	"sort"

	"github.com/xkilldash9x/petstore-e2e/internal/browser"
)

var (
	PageHeader    = browser.CSS(`div[id="Header"]`)
	DogsPageLink  = browser.CSS(`div[id="MainImageContent"] > map[name="estoremap"] > area[alt="Dogs"]`)
	DogsPageBreed = browser.CSS(`div[id="Catalog"] > table > tbody > tr> td > a`)
	LinkButton    = browser.CSS(`a[class="Button"]`)
	CartContainer = browser.CSS(`div[id="Cart"]`)
)

var registry = map[string]browser.Locator{
	"PAGE_HEADER":     PageHeader,
	"DOGS_PAGE_LINK":  DogsPageLink,
	"DOGS_PAGE_BREED": DogsPageBreed,
	"LINK_BUTTON":     LinkButton,
	"CART_CONTAINER":  CartContainer,
}

// Lookup returns the locator registered under name.
func Lookup(name string) (browser.Locator, bool) {
	loc, ok := registry[name]
	return loc, ok
}

// Names lists the registered locator names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

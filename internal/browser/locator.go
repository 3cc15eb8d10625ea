package browser

import (
	"encoding/json"
	"fmt"
)

// By is a element location strategy.
type By int

const (
	ByCSS By = iota
	ByXPath
	ByTag
	ByClass
	ByID
)

func (b By) String() string {
	switch b {
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	case ByTag:
		return "tag"
	case ByClass:
		return "class"
	case ByID:
		return "id"
	default:
		return fmt.Sprintf("By(%d)", int(b))
	}
}

// Locator identifies the Index-th element (0-based, document order) matched
// by Selector under the By strategy. Locators are immutable values.
type Locator struct {
	By       By
	Selector string
	Index    int
}

// CSS returns a locator for the first element matching a CSS selector.
func CSS(selector string) Locator { return Locator{By: ByCSS, Selector: selector} }

// XPath returns a locator for the first element matching an XPath expression.
func XPath(expr string) Locator { return Locator{By: ByXPath, Selector: expr} }

// Tag returns a locator for the first element with the given tag name.
func Tag(name string) Locator { return Locator{By: ByTag, Selector: name} }

// Class returns a locator for the first element carrying the given class.
func Class(name string) Locator { return Locator{By: ByClass, Selector: name} }

// ID returns a locator for the element with the given id.
func ID(id string) Locator { return Locator{By: ByID, Selector: id} }

// Nth returns a copy of l that targets the i-th match.
func (l Locator) Nth(i int) Locator {
	l.Index = i
	return l
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s[%d]", l.By, l.Selector, l.Index)
}

// CSSSelector returns an equivalent CSS selector. XPath locators have none.
func (l Locator) CSSSelector() (string, bool) {
	switch l.By {
	case ByCSS, ByTag:
		return l.Selector, true
	case ByClass:
		return fmt.Sprintf("[class~=%s]", jsonEncode(l.Selector)), true
	case ByID:
		return fmt.Sprintf("[id=%s]", jsonEncode(l.Selector)), true
	default:
		return "", false
	}
}

// JSAll returns a JavaScript expression evaluating to an array of every
// element the selector matches, in document order.
func (l Locator) JSAll() string {
	sel := jsonEncode(l.Selector)
	switch l.By {
	case ByXPath:
		return fmt.Sprintf(`(function(x){var r=document.evaluate(x,document,null,XPathResult.ORDERED_NODE_SNAPSHOT_TYPE,null);var a=[];for(var i=0;i<r.snapshotLength;i++){a.push(r.snapshotItem(i));}return a;})(%s)`, sel)
	case ByTag:
		return fmt.Sprintf(`Array.from(document.getElementsByTagName(%s))`, sel)
	case ByClass:
		return fmt.Sprintf(`Array.from(document.getElementsByClassName(%s))`, sel)
	case ByID:
		return fmt.Sprintf(`[document.getElementById(%s)].filter(Boolean)`, sel)
	default:
		return fmt.Sprintf(`Array.from(document.querySelectorAll(%s))`, sel)
	}
}

// JS returns a JavaScript expression evaluating to the targeted element, or null.
func (l Locator) JS() string {
	return fmt.Sprintf(`((%s)[%d] || null)`, l.JSAll(), l.Index)
}

// jsonEncode safely encodes a value for injection into a script.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// JSONEncode is jsonEncode for backends that build their own scripts.
func JSONEncode(v interface{}) string { return jsonEncode(v) }

package cart

import (
	"maps"

	"github.com/shopspring/decimal"
)

// Product is what a caller supplies when adding to the cart.
type Product struct {
	ID         string
	Name       string
	UnitPrice  decimal.Decimal
	Image      string
	Attributes map[string]any
}

// LineItem is one product row in the cart. Image and Attributes are carried
// for the presentation layer and never interpreted here. Numbers inside
// Attributes come back from a snapshot as json.Number.
type LineItem struct {
	ID         string
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int
	Image      string
	Attributes map[string]any
}

// LineTotal is UnitPrice × Quantity, unrounded.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) clone() LineItem {
	if li.Attributes != nil {
		li.Attributes = maps.Clone(li.Attributes)
	}
	return li
}

// Totals are derived from the items on every read.
type Totals struct {
	TotalItems int
	Subtotal   decimal.Decimal
}

// State is an immutable view of the cart at one version.
type State struct {
	Items   []LineItem
	Totals  Totals
	Version uint64
}

// IsEmpty reports whether the cart has no rows.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the row with the given id.
func (s State) Find(id string) (LineItem, bool) {
	if i := indexOf(s.Items, id); i >= 0 {
		return s.Items[i], true
	}
	return LineItem{}, false
}

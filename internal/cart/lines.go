package cart

import "github.com/shopspring/decimal"

// MaxQuantity caps a single row. Adds past it saturate rather than wrap, and
// snapshots holding a larger quantity are rejected on load.
const MaxQuantity = 1_000_000

// The helpers below never mutate their input slice. They return a fresh
// slice and whether anything changed, so a caller holding an older State
// keeps seeing the items it was handed.

func indexOf(items []LineItem, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func addLine(items []LineItem, p Product, qty int) ([]LineItem, bool) {
	if i := indexOf(items, p.ID); i >= 0 {
		return setLineQuantity(items, i, addQuantity(items[i].Quantity, qty))
	}
	if qty <= 0 {
		return items, false
	}
	qty = min(qty, MaxQuantity)
	next := make([]LineItem, len(items), len(items)+1)
	copy(next, items)
	next = append(next, LineItem{
		ID:         p.ID,
		Name:       p.Name,
		UnitPrice:  p.UnitPrice,
		Quantity:   qty,
		Image:      p.Image,
		Attributes: p.Attributes,
	}.clone())
	return next, true
}

func removeLine(items []LineItem, id string) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	next := make([]LineItem, 0, len(items)-1)
	next = append(next, items[:i]...)
	next = append(next, items[i+1:]...)
	return next, true
}

func updateLine(items []LineItem, id string, qty int) ([]LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	return setLineQuantity(items, i, qty)
}

// addQuantity sums without overflowing; the result saturates at MaxQuantity.
func addQuantity(existing, qty int) int {
	if qty > 0 && qty > MaxQuantity-existing {
		return MaxQuantity
	}
	return existing + qty
}

// setLineQuantity keeps quantities positive: anything ≤ 0 drops the row.
func setLineQuantity(items []LineItem, i, qty int) ([]LineItem, bool) {
	if qty <= 0 {
		return removeLine(items, items[i].ID)
	}
	qty = min(qty, MaxQuantity)
	if items[i].Quantity == qty {
		return items, false
	}
	next := make([]LineItem, len(items))
	copy(next, items)
	next[i].Quantity = qty
	return next, true
}

func computeTotals(items []LineItem) Totals {
	totals := Totals{Subtotal: decimal.Zero}
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.Subtotal = totals.Subtotal.Add(item.LineTotal())
	}
	totals.Subtotal = totals.Subtotal.Round(2)
	return totals
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i := range items {
		out[i] = items[i].clone()
	}
	return out
}

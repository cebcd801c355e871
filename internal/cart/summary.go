package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-cart/pkg/enums"
)

// Pricing holds the order-summary constants applied on top of the subtotal.
type Pricing struct {
	Currency     enums.Currency
	TaxRate      decimal.Decimal
	FlatShipping decimal.Decimal
}

// DefaultPricing is flat 15.00 shipping and 8% tax in USD.
func DefaultPricing() Pricing {
	return Pricing{
		Currency:     enums.CurrencyUSD,
		TaxRate:      decimal.RequireFromString("0.08"),
		FlatShipping: decimal.RequireFromString("15.00"),
	}
}

// Summary is the checkout preview shown next to the cart.
type Summary struct {
	TotalItems int
	Subtotal   decimal.Decimal
	Shipping   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Currency   enums.Currency
}

// Summarize charges shipping only on a non-empty cart; tax applies to the
// subtotal alone. Every amount is rounded to cents.
func (p Pricing) Summarize(t Totals) Summary {
	subtotal := t.Subtotal.Round(2)
	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = p.FlatShipping.Round(2)
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Summary{
		TotalItems: t.TotalItems,
		Subtotal:   subtotal,
		Shipping:   shipping,
		Tax:        tax,
		Total:      subtotal.Add(shipping).Add(tax),
		Currency:   p.Currency,
	}
}

// Summary prices the current cart.
func (s *Store) Summary(p Pricing) Summary {
	return p.Summarize(s.Totals())
}

package cart

import (
	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
)

func newCart(sessionID string, state cartsvc.State) cartdto.Cart {
	items := make([]cartdto.CartItem, 0, len(state.Items))
	for _, item := range state.Items {
		items = append(items, cartdto.CartItem{
			ID:         item.ID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice.StringFixed(2),
			Quantity:   item.Quantity,
			LineTotal:  item.LineTotal().StringFixed(2),
			Image:      item.Image,
			Attributes: item.Attributes,
		})
	}
	return cartdto.Cart{
		SessionID:  sessionID,
		Items:      items,
		TotalItems: state.Totals.TotalItems,
		Subtotal:   state.Totals.Subtotal.StringFixed(2),
		Version:    state.Version,
	}
}

func newSummary(sum cartsvc.Summary) cartdto.Summary {
	return cartdto.Summary{
		TotalItems: sum.TotalItems,
		Subtotal:   sum.Subtotal.StringFixed(2),
		Shipping:   sum.Shipping.StringFixed(2),
		Tax:        sum.Tax.StringFixed(2),
		Total:      sum.Total.StringFixed(2),
		Currency:   sum.Currency.String(),
	}
}

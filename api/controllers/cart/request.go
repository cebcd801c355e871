package cart

import (
	"github.com/shopspring/decimal"

	cartdto "github.com/angelmondragon/storefront-cart/api/controllers/cart/dto"
	"github.com/angelmondragon/storefront-cart/api/validators"
	cartsvc "github.com/angelmondragon/storefront-cart/internal/cart"
)

const defaultAddQuantity = 1

func toProduct(payload cartdto.AddItemRequest) (cartsvc.Product, int) {
	qty := defaultAddQuantity
	if payload.Quantity != nil {
		qty = *payload.Quantity
	}
	// DecodeJSONBody has already rejected a missing unit_price.
	price := decimal.Zero
	if payload.UnitPrice != nil {
		price = *payload.UnitPrice
	}
	return cartsvc.Product{
		ID:         validators.SanitizeString(payload.ID, 128),
		Name:       validators.SanitizeString(payload.Name, 256),
		UnitPrice:  price,
		Image:      validators.SanitizeString(payload.Image, 2048),
		Attributes: payload.Attributes,
	}, qty
}

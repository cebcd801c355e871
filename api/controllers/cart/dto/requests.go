package cartdto

import "github.com/shopspring/decimal"

// AddItemRequest adds a product to the cart. Quantity defaults to 1.
type AddItemRequest struct {
	ID         string           `json:"id" validate:"required,max=128"`
	Name       string           `json:"name" validate:"required,max=256"`
	UnitPrice  *decimal.Decimal `json:"unit_price" validate:"required,gte=0"`
	Quantity   *int             `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	Image      string           `json:"image,omitempty" validate:"omitempty,max=2048"`
	Attributes map[string]any   `json:"attributes,omitempty"`
}

// UpdateQuantityRequest sets a row's quantity; zero or less removes it.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=10000"`
}

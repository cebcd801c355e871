package cartdto

// Cart is the public shape of a cart state. Money is rendered as fixed
// two-decimal strings.
type Cart struct {
	SessionID  string     `json:"session_id"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	Subtotal   string     `json:"subtotal"`
	Version    uint64     `json:"version"`
}

type CartItem struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	UnitPrice  string         `json:"unit_price"`
	Quantity   int            `json:"quantity"`
	LineTotal  string         `json:"line_total"`
	Image      string         `json:"image,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Summary is the order preview next to the cart.
type Summary struct {
	TotalItems int    `json:"total_items"`
	Subtotal   string `json:"subtotal"`
	Shipping   string `json:"shipping"`
	Tax        string `json:"tax"`
	Total      string `json:"total"`
	Currency   string `json:"currency"`
}

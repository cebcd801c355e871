package enums

// CartOperation labels a cart mutation for logs and metrics.
type CartOperation string

const (
	CartOperationAdd    CartOperation = "add_item"
	CartOperationRemove CartOperation = "remove_item"
	CartOperationUpdate CartOperation = "update_quantity"
	CartOperationClear  CartOperation = "clear"
)

// String implements fmt.Stringer.
func (o CartOperation) String() string {
	return string(o)
}

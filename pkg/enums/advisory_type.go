package enums

// AdvisoryType classifies non-fatal notices raised while editing an order.
type AdvisoryType string

const (
	AdvisoryQuantityExceedsStock AdvisoryType = "quantity_exceeds_stock"
	AdvisoryProductNotFound      AdvisoryType = "product_not_found"
)

// String implements fmt.Stringer.
func (a AdvisoryType) String() string {
	return string(a)
}

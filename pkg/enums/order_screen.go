package enums

// OrderScreen identifies the order-entry screen a form or order came from.
type OrderScreen string

const (
	OrderScreenSale       OrderScreen = "sale"
	OrderScreenCustomer   OrderScreen = "customer"
	OrderScreenDraft      OrderScreen = "draft"
	OrderScreenAdjustment OrderScreen = "adjustment"
)

var validOrderScreens = []OrderScreen{
	OrderScreenSale,
	OrderScreenCustomer,
	OrderScreenDraft,
	OrderScreenAdjustment,
}

// String implements fmt.Stringer.
func (s OrderScreen) String() string {
	return string(s)
}

// IsValid reports whether the screen is recognized.
func (s OrderScreen) IsValid() bool {
	_, err := ParseOrderScreen(string(s))
	return err == nil
}

// ParseOrderScreen converts a raw string into an OrderScreen.
func ParseOrderScreen(value string) (OrderScreen, error) {
	return parse(validOrderScreens, value, "order screen")
}

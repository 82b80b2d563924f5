package totals

import "github.com/angelmondragon/retailerp-backend/pkg/enums"

// LineItem is one product row of an order form. Derived fields are overwritten
// on every recompute.
type LineItem struct {
	RowID             string   `json:"rowId"`
	ProductID         string   `json:"productId,omitempty"`
	Name              string   `json:"name"`
	Quantity          float64  `json:"quantity"`
	UnitPrice         float64  `json:"unitPrice"`
	Discount          float64  `json:"discount"`
	CommissionPercent float64  `json:"commissionPercent"`
	CurrentStock      *float64 `json:"currentStock,omitempty"`

	CommissionAmount float64 `json:"commissionAmount"`
	Subtotal         float64 `json:"subtotal"`

	// Row-owned UI state, kept with the row so removing another row never
	// shifts it onto the wrong line.
	SearchText   string `json:"searchText,omitempty"`
	DropdownOpen bool   `json:"dropdownOpen,omitempty"`
}

// Adjustments are the order-level modifiers applied after line subtotals are summed.
type Adjustments struct {
	DiscountType    enums.DiscountType `json:"discountType"`
	DiscountAmount  float64            `json:"discountAmount"`
	OrderTax        float64            `json:"orderTax"`
	ShippingCharges float64            `json:"shippingCharges"`
	PaymentAmount   float64            `json:"paymentAmount"`
}

// Totals is the derived snapshot for an order. It is never edited directly.
type Totals struct {
	ItemsTotal      float64 `json:"itemsTotal"`
	TotalCommission float64 `json:"totalCommission"`
	Discount        float64 `json:"discount"`
	TaxableBase     float64 `json:"taxableBase"`
	TaxAmount       float64 `json:"taxAmount"`
	ShippingCharges float64 `json:"shippingCharges"`
	TotalPayable    float64 `json:"totalPayable"`
	PaymentAmount   float64 `json:"paymentAmount"`
	Balance         float64 `json:"balance"`
	ChangeReturn    float64 `json:"changeReturn"`
}

// Result bundles a full recompute of an order.
type Result struct {
	Lines      []LineItem `json:"lines"`
	Totals     Totals     `json:"totals"`
	Advisories []Advisory `json:"advisories"`
}

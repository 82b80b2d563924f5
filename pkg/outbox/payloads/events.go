package payloads

import (
	"time"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderTotalsSnapshot carries the derived totals of an order as 2dp decimal strings.
type OrderTotalsSnapshot struct {
	ItemsTotal      string `json:"items_total"`
	TotalCommission string `json:"total_commission"`
	Discount        string `json:"discount"`
	TaxAmount       string `json:"tax_amount"`
	ShippingCharges string `json:"shipping_charges"`
	TotalPayable    string `json:"total_payable"`
	PaymentAmount   string `json:"payment_amount"`
	Balance         string `json:"balance"`
	ChangeReturn    string `json:"change_return"`
}

// OrderCreatedEvent is emitted once per submitted order.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID           `json:"order_id"`
	Reference    string              `json:"reference"`
	Screen       enums.OrderScreen   `json:"screen"`
	CustomerName *string             `json:"customer_name,omitempty"`
	DiscountType enums.DiscountType  `json:"discount_type"`
	OrderTax     string              `json:"order_tax"`
	LineCount    int                 `json:"line_count"`
	Totals       OrderTotalsSnapshot `json:"totals"`
	CreatedAt    time.Time           `json:"created_at"`
}

package requests

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailerp-backend/pkg/errors"
)

// Line is an order row as sent by the order-entry screens. Derived fields are
// accepted so clients can echo rows back, but they are always recomputed.
type Line struct {
	RowID             string   `json:"rowId"`
	ProductID         string   `json:"productId"`
	Name              string   `json:"name" validate:"max=200"`
	Quantity          float64  `json:"quantity" validate:"gte=0"`
	UnitPrice         float64  `json:"unitPrice" validate:"gte=0"`
	Discount          float64  `json:"discount" validate:"gte=0"`
	CommissionPercent float64  `json:"commissionPercent" validate:"gte=0,lte=100"`
	CurrentStock      *float64 `json:"currentStock" validate:"omitempty,gte=0"`
	CommissionAmount  float64  `json:"commissionAmount"`
	Subtotal          float64  `json:"subtotal"`
	SearchText        string   `json:"searchText" validate:"max=200"`
	DropdownOpen      bool     `json:"dropdownOpen"`
}

// Adjustments are the order-level modifiers.
type Adjustments struct {
	DiscountType    string  `json:"discountType"`
	DiscountAmount  float64 `json:"discountAmount" validate:"gte=0"`
	OrderTax        float64 `json:"orderTax" validate:"gte=0,lte=100"`
	ShippingCharges float64 `json:"shippingCharges" validate:"gte=0"`
	PaymentAmount   float64 `json:"paymentAmount" validate:"gte=0"`
}

// LineItem converts a request row. A row sent without an id gets a fresh one
// so advisories can still point at it.
func (l Line) LineItem() totals.LineItem {
	item := totals.LineItem{
		RowID:             strings.TrimSpace(l.RowID),
		ProductID:         strings.TrimSpace(l.ProductID),
		Name:              strings.TrimSpace(l.Name),
		Quantity:          l.Quantity,
		UnitPrice:         l.UnitPrice,
		Discount:          l.Discount,
		CommissionPercent: l.CommissionPercent,
		SearchText:        l.SearchText,
		DropdownOpen:      l.DropdownOpen,
	}
	if item.RowID == "" {
		item.RowID = uuid.NewString()
	}
	if l.CurrentStock != nil {
		stock := *l.CurrentStock
		item.CurrentStock = &stock
	}
	return item
}

// LineItems converts request rows into calculator rows.
func LineItems(lines []Line) []totals.LineItem {
	out := make([]totals.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.LineItem())
	}
	return out
}

// ToAdjustments resolves the discount type. An empty type means a fixed amount.
func (a Adjustments) ToAdjustments() (totals.Adjustments, error) {
	discountType := enums.DiscountTypeAmount
	if raw := strings.TrimSpace(a.DiscountType); raw != "" {
		parsed, err := enums.ParseDiscountType(raw)
		if err != nil {
			return totals.Adjustments{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type").
				WithDetails(map[string]string{"discountType": "must be one of [percentage amount]"})
		}
		discountType = parsed
	}
	return totals.Adjustments{
		DiscountType:    discountType,
		DiscountAmount:  a.DiscountAmount,
		OrderTax:        a.OrderTax,
		ShippingCharges: a.ShippingCharges,
		PaymentAmount:   a.PaymentAmount,
	}, nil
}

// ParseScreen validates an order-entry screen name.
func ParseScreen(raw string) (enums.OrderScreen, error) {
	screen, err := enums.ParseOrderScreen(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid screen").
			WithDetails(map[string]string{"screen": "must be one of [sale customer draft adjustment]"})
	}
	return screen, nil
}

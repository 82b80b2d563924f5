package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailerp-backend/internal/totals"
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/money"
	"github.com/angelmondragon/retailerp-backend/pkg/pagination"
)

// SubmitInput is a finished order form. Derived fields on the lines are
// ignored and recomputed.
type SubmitInput struct {
	Screen       enums.OrderScreen
	CustomerName *string
	FormID       string
	Lines        []totals.LineItem
	Adjustments  totals.Adjustments
}

// SubmitResult is the stored order plus any clamps applied while re-deriving it.
type SubmitResult struct {
	Order      OrderDetail       `json:"order"`
	Advisories []totals.Advisory `json:"advisories"`
}

// SortField is the column an order listing is ordered by.
type SortField string

const (
	SortCreatedAt    SortField = "created_at"
	SortTotalPayable SortField = "total_payable"
)

// ListParams are the raw listing inputs from a controller.
type ListParams struct {
	Screen    string
	Query     string
	Sort      string
	Direction string
	Limit     int
	Cursor    string
}

type listQuery struct {
	Screen    enums.OrderScreen
	Query     string
	Sort      SortField
	Direction pagination.Direction
	Limit     int
	Cursor    *pagination.Cursor
}

// ListResult is one page of order summaries.
type ListResult struct {
	Items  []OrderSummary `json:"items"`
	Cursor string         `json:"cursor,omitempty"`
}

type LineView struct {
	RowID             string       `json:"rowId"`
	ProductID         string       `json:"productId,omitempty"`
	Name              string       `json:"name"`
	Quantity          float64      `json:"quantity"`
	UnitPrice         money.Amount `json:"unitPrice"`
	Discount          money.Amount `json:"discount"`
	CommissionPercent money.Amount `json:"commissionPercent"`
	CommissionAmount  money.Amount `json:"commissionAmount"`
	Subtotal          money.Amount `json:"subtotal"`
}

// OrderSummary is the list row of an order.
type OrderSummary struct {
	ID           string            `json:"id"`
	Reference    string            `json:"reference"`
	Screen       enums.OrderScreen `json:"screen"`
	CustomerName *string           `json:"customerName,omitempty"`
	LineCount    int               `json:"lineCount"`
	Totals       totals.TotalsView `json:"totals"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// OrderDetail is a full order with its lines in submitted order.
type OrderDetail struct {
	OrderSummary
	FormID      string                 `json:"formId,omitempty"`
	Adjustments totals.AdjustmentsView `json:"adjustments"`
	Lines       []LineView             `json:"lines"`
}

func amount(d decimal.Decimal) money.Amount {
	return money.Amount(money.Float(d))
}

func totalsView(o models.Order) totals.TotalsView {
	return totals.TotalsView{
		ItemsTotal:      amount(o.ItemsTotal),
		TotalCommission: amount(o.TotalCommission),
		Discount:        amount(o.Discount),
		TaxableBase:     amount(o.TaxableBase),
		TaxAmount:       amount(o.TaxAmount),
		ShippingCharges: amount(o.ShippingCharges),
		TotalPayable:    amount(o.TotalPayable),
		PaymentAmount:   amount(o.PaymentAmount),
		Balance:         amount(o.Balance),
		ChangeReturn:    amount(o.ChangeReturn),
	}
}

func summaryFromModel(o models.Order) OrderSummary {
	return OrderSummary{
		ID:           o.ID.String(),
		Reference:    o.Reference,
		Screen:       o.Screen,
		CustomerName: o.CustomerName,
		LineCount:    o.LineCount,
		Totals:       totalsView(o),
		CreatedAt:    o.CreatedAt.UTC(),
	}
}

func detailFromModel(o models.Order) OrderDetail {
	detail := OrderDetail{
		OrderSummary: summaryFromModel(o),
		Adjustments: totals.AdjustmentsView{
			DiscountType:    o.DiscountType,
			DiscountAmount:  amount(o.DiscountAmount),
			OrderTax:        amount(o.OrderTax),
			ShippingCharges: amount(o.ShippingCharges),
			PaymentAmount:   amount(o.PaymentAmount),
		},
		Lines: make([]LineView, 0, len(o.Lines)),
	}
	if o.FormID != nil {
		detail.FormID = o.FormID.String()
	}
	for _, line := range o.Lines {
		view := LineView{
			RowID:             line.RowID,
			Name:              line.Name,
			Quantity:          money.Float(line.Quantity),
			UnitPrice:         amount(line.UnitPrice),
			Discount:          amount(line.Discount),
			CommissionPercent: amount(line.CommissionPercent),
			CommissionAmount:  amount(line.CommissionAmount),
			Subtotal:          amount(line.Subtotal),
		}
		if line.ProductID != nil {
			view.ProductID = line.ProductID.String()
		}
		detail.Lines = append(detail.Lines, view)
	}
	return detail
}

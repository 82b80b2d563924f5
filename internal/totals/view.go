package totals

import (
	"github.com/angelmondragon/retailerp-backend/pkg/enums"
	"github.com/angelmondragon/retailerp-backend/pkg/money"
)

// The view types are the response shapes of the calculator types. Currency
// fields are money.Amount so they render with two decimals; quantities and
// stock stay as plain numbers.

type LineView struct {
	RowID             string       `json:"rowId"`
	ProductID         string       `json:"productId,omitempty"`
	Name              string       `json:"name"`
	Quantity          float64      `json:"quantity"`
	UnitPrice         money.Amount `json:"unitPrice"`
	Discount          money.Amount `json:"discount"`
	CommissionPercent money.Amount `json:"commissionPercent"`
	CurrentStock      *float64     `json:"currentStock,omitempty"`
	CommissionAmount  money.Amount `json:"commissionAmount"`
	Subtotal          money.Amount `json:"subtotal"`
	SearchText        string       `json:"searchText,omitempty"`
	DropdownOpen      bool         `json:"dropdownOpen,omitempty"`
}

type AdjustmentsView struct {
	DiscountType    enums.DiscountType `json:"discountType"`
	DiscountAmount  money.Amount       `json:"discountAmount"`
	OrderTax        money.Amount       `json:"orderTax"`
	ShippingCharges money.Amount       `json:"shippingCharges"`
	PaymentAmount   money.Amount       `json:"paymentAmount"`
}

type TotalsView struct {
	ItemsTotal      money.Amount `json:"itemsTotal"`
	TotalCommission money.Amount `json:"totalCommission"`
	Discount        money.Amount `json:"discount"`
	TaxableBase     money.Amount `json:"taxableBase"`
	TaxAmount       money.Amount `json:"taxAmount"`
	ShippingCharges money.Amount `json:"shippingCharges"`
	TotalPayable    money.Amount `json:"totalPayable"`
	PaymentAmount   money.Amount `json:"paymentAmount"`
	Balance         money.Amount `json:"balance"`
	ChangeReturn    money.Amount `json:"changeReturn"`
}

type ResultView struct {
	Lines      []LineView `json:"lines"`
	Totals     TotalsView `json:"totals"`
	Advisories []Advisory `json:"advisories"`
}

func (l LineItem) View() LineView {
	view := LineView{
		RowID:             l.RowID,
		ProductID:         l.ProductID,
		Name:              l.Name,
		Quantity:          l.Quantity,
		UnitPrice:         money.Amount(l.UnitPrice),
		Discount:          money.Amount(l.Discount),
		CommissionPercent: money.Amount(l.CommissionPercent),
		CommissionAmount:  money.Amount(l.CommissionAmount),
		Subtotal:          money.Amount(l.Subtotal),
		SearchText:        l.SearchText,
		DropdownOpen:      l.DropdownOpen,
	}
	if l.CurrentStock != nil {
		stock := *l.CurrentStock
		view.CurrentStock = &stock
	}
	return view
}

// LineViews never returns nil so an empty form renders "lines": [].
func LineViews(lines []LineItem) []LineView {
	views := make([]LineView, 0, len(lines))
	for _, l := range lines {
		views = append(views, l.View())
	}
	return views
}

func (a Adjustments) View() AdjustmentsView {
	return AdjustmentsView{
		DiscountType:    a.DiscountType,
		DiscountAmount:  money.Amount(a.DiscountAmount),
		OrderTax:        money.Amount(a.OrderTax),
		ShippingCharges: money.Amount(a.ShippingCharges),
		PaymentAmount:   money.Amount(a.PaymentAmount),
	}
}

func (t Totals) View() TotalsView {
	return TotalsView{
		ItemsTotal:      money.Amount(t.ItemsTotal),
		TotalCommission: money.Amount(t.TotalCommission),
		Discount:        money.Amount(t.Discount),
		TaxableBase:     money.Amount(t.TaxableBase),
		TaxAmount:       money.Amount(t.TaxAmount),
		ShippingCharges: money.Amount(t.ShippingCharges),
		TotalPayable:    money.Amount(t.TotalPayable),
		PaymentAmount:   money.Amount(t.PaymentAmount),
		Balance:         money.Amount(t.Balance),
		ChangeReturn:    money.Amount(t.ChangeReturn),
	}
}

func (r Result) View() ResultView {
	advisories := r.Advisories
	if advisories == nil {
		advisories = []Advisory{}
	}
	return ResultView{
		Lines:      LineViews(r.Lines),
		Totals:     r.Totals.View(),
		Advisories: advisories,
	}
}

package reporting

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// OrderTotalsRow is one order in the order_totals table. Amounts are 2dp
// decimal strings so NUMERIC columns receive them unchanged.
type OrderTotalsRow struct {
	EventID         string
	OrderID         string
	Reference       string
	Screen          string
	CustomerName    bigquery.NullString
	DiscountType    string
	OrderTax        string
	LineCount       int
	ItemsTotal      string
	TotalCommission string
	Discount        string
	TaxAmount       string
	ShippingCharges string
	TotalPayable    string
	PaymentAmount   string
	Balance         string
	ChangeReturn    string
	OccurredAt      time.Time
	IngestedAt      time.Time
}

// Save implements bigquery.ValueSaver. The event id doubles as the insert id
// so redelivered events are deduplicated by BigQuery.
func (r *OrderTotalsRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"order_id":         r.OrderID,
		"reference":        r.Reference,
		"screen":           r.Screen,
		"customer_name":    r.CustomerName,
		"discount_type":    r.DiscountType,
		"order_tax":        r.OrderTax,
		"line_count":       r.LineCount,
		"items_total":      r.ItemsTotal,
		"total_commission": r.TotalCommission,
		"discount":         r.Discount,
		"tax_amount":       r.TaxAmount,
		"shipping_charges": r.ShippingCharges,
		"total_payable":    r.TotalPayable,
		"payment_amount":   r.PaymentAmount,
		"balance":          r.Balance,
		"change_return":    r.ChangeReturn,
		"occurred_at":      r.OccurredAt,
		"ingested_at":      r.IngestedAt,
	}, r.EventID, nil
}

package bigquery

import "cloud.google.com/go/bigquery"

// orderTotalsSchema mirrors reporting.OrderTotalsRow. Money columns are
// NUMERIC so 2dp strings land without float drift.
var orderTotalsSchema = bigquery.Schema{
	{Name: "order_id", Type: bigquery.StringFieldType, Required: true},
	{Name: "reference", Type: bigquery.StringFieldType, Required: true},
	{Name: "screen", Type: bigquery.StringFieldType, Required: true},
	{Name: "customer_name", Type: bigquery.StringFieldType},
	{Name: "discount_type", Type: bigquery.StringFieldType},
	{Name: "order_tax", Type: bigquery.NumericFieldType},
	{Name: "line_count", Type: bigquery.IntegerFieldType},
	{Name: "items_total", Type: bigquery.NumericFieldType},
	{Name: "total_commission", Type: bigquery.NumericFieldType},
	{Name: "discount", Type: bigquery.NumericFieldType},
	{Name: "tax_amount", Type: bigquery.NumericFieldType},
	{Name: "shipping_charges", Type: bigquery.NumericFieldType},
	{Name: "total_payable", Type: bigquery.NumericFieldType},
	{Name: "payment_amount", Type: bigquery.NumericFieldType},
	{Name: "balance", Type: bigquery.NumericFieldType},
	{Name: "change_return", Type: bigquery.NumericFieldType},
	{Name: "occurred_at", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "ingested_at", Type: bigquery.TimestampFieldType, Required: true},
}

// OrderTotalsColumns lists the order_totals column names in schema order.
func OrderTotalsColumns() []string {
	cols := make([]string, len(orderTotalsSchema))
	for i, field := range orderTotalsSchema {
		cols[i] = field.Name
	}
	return cols
}

// orderTotalsTable is partitioned by day on occurred_at and clustered by screen.
func orderTotalsTable() *bigquery.TableMetadata {
	return &bigquery.TableMetadata{
		Schema: orderTotalsSchema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "occurred_at",
		},
		Clustering: &bigquery.Clustering{Fields: []string{"screen"}},
	}
}

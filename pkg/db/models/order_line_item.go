package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem captures one submitted row of an order.
type OrderLineItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	RowID             string          `gorm:"column:row_id;not null"`
	Position          int             `gorm:"column:position;not null"`
	ProductID         *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Name              string          `gorm:"column:name;not null"`
	Quantity          decimal.Decimal `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Discount          decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2);not null"`
	CommissionAmount  decimal.Decimal `gorm:"column:commission_amount;type:numeric(14,2);not null"`
	Subtotal          decimal.Decimal `gorm:"column:subtotal;type:numeric(14,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailerp-backend/pkg/enums"
)

// Order is the persisted snapshot of a submitted order form: its adjustments,
// derived totals and line items.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Reference    string            `gorm:"column:reference;not null"`
	Screen       enums.OrderScreen `gorm:"column:screen;not null"`
	CustomerName *string           `gorm:"column:customer_name"`
	FormID       *uuid.UUID        `gorm:"column:form_id;type:uuid"`

	DiscountType    enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountAmount  decimal.Decimal    `gorm:"column:discount_amount;type:numeric(14,2);not null"`
	OrderTax        decimal.Decimal    `gorm:"column:order_tax;type:numeric(5,2);not null"`
	ShippingCharges decimal.Decimal    `gorm:"column:shipping_charges;type:numeric(14,2);not null"`
	PaymentAmount   decimal.Decimal    `gorm:"column:payment_amount;type:numeric(14,2);not null"`

	ItemsTotal      decimal.Decimal `gorm:"column:items_total;type:numeric(14,2);not null"`
	TotalCommission decimal.Decimal `gorm:"column:total_commission;type:numeric(14,2);not null"`
	Discount        decimal.Decimal `gorm:"column:discount;type:numeric(14,2);not null"`
	TaxableBase     decimal.Decimal `gorm:"column:taxable_base;type:numeric(14,2);not null"`
	TaxAmount       decimal.Decimal `gorm:"column:tax_amount;type:numeric(14,2);not null"`
	TotalPayable    decimal.Decimal `gorm:"column:total_payable;type:numeric(14,2);not null"`
	Balance         decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null"`
	ChangeReturn    decimal.Decimal `gorm:"column:change_return;type:numeric(14,2);not null"`

	LineCount int             `gorm:"column:line_count;not null"`
	Lines     []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

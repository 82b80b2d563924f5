package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item.
type Product struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	SKU          string              `gorm:"column:sku;not null"`
	Name         string              `gorm:"column:name;not null"`
	Price        decimal.Decimal     `gorm:"column:price;type:numeric(14,2);not null"`
	AvailableQty decimal.NullDecimal `gorm:"column:available_qty;type:numeric(14,3)"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

package catalog

import (
	"github.com/angelmondragon/retailerp-backend/pkg/db/models"
	"github.com/angelmondragon/retailerp-backend/pkg/money"
)

// Item is the catalog view a line item is filled from.
type Item struct {
	ID    string   `json:"id"`
	SKU   string   `json:"sku"`
	Name  string   `json:"name"`
	Price float64  `json:"price"`
	Stock *float64 `json:"stock,omitempty"`
}

func itemFromModel(p models.Product) Item {
	item := Item{
		ID:    p.ID.String(),
		SKU:   p.SKU,
		Name:  p.Name,
		Price: money.Float(p.Price),
	}
	if p.AvailableQty.Valid {
		stock := money.Float(p.AvailableQty.Decimal)
		item.Stock = &stock
	}
	return item
}

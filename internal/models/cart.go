package models

import "github.com/shopspring/decimal"

type CartItem struct {
	Base
	UserID    uint    `gorm:"index;not null" json:"userId"`
	ProductID uint    `gorm:"index;not null" json:"productId"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE" json:"product,omitempty"`
}

// CartTotal sums quantity×price over items. Product must be preloaded.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

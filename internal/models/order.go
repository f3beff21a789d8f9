package models

import "github.com/shopspring/decimal"

// OrderStatus is the order lifecycle state.
type OrderStatus string

const (
	OrderPending        OrderStatus = "PENDING"
	OrderAccepted       OrderStatus = "ACCEPTED"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderAccepted, OrderOutForDelivery, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in this state may still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s != OrderDelivered && s != OrderCancelled
}

type Order struct {
	Base
	UserID    uint            `gorm:"index;not null" json:"userId"`
	NetAmount decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"netAmount"`
	Address   string          `gorm:"not null" json:"address"`
	Status    OrderStatus     `gorm:"type:varchar(32);index;not null;default:'PENDING'" json:"status"`

	Products []OrderProduct `gorm:"constraint:OnDelete:CASCADE" json:"products,omitempty"`
	Events   []OrderEvent   `gorm:"constraint:OnDelete:CASCADE" json:"events,omitempty"`
}

type OrderProduct struct {
	Base
	OrderID   uint `gorm:"index;not null" json:"orderId"`
	ProductID uint `gorm:"index;not null" json:"productId"`
	Quantity  int  `gorm:"not null" json:"quantity"`
}

type OrderEvent struct {
	Base
	OrderID uint        `gorm:"index;not null" json:"orderId"`
	Status  OrderStatus `gorm:"type:varchar(32);not null;default:'PENDING'" json:"status"`
}

// All lists every model for migrations.
func All() []any {
	return []any{&User{}, &Address{}, &Product{}, &CartItem{}, &Order{}, &OrderProduct{}, &OrderEvent{}}
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryAddress is a free-text address plus the geocoded point used for
// courier matching. Geocoding itself happens upstream; only the numbers are
// consumed here.
type DeliveryAddress struct {
	Text string
	Lat  float64
	Lng  float64
}

// OrderItem is a line item captured at checkout. Name and price are
// snapshots, not live lookups.
type OrderItem struct {
	ItemID   uuid.UUID
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// ShopOrder is one shop's fulfillment obligation within an Order.
// It is owned by its Order and never deleted independently.
type ShopOrder struct {
	ID                uuid.UUID
	OrderID           uuid.UUID
	ShopID            uuid.UUID
	OwnerID           uuid.UUID
	Subtotal          decimal.Decimal
	Items             []OrderItem
	Status            ShopOrderStatus
	AssignedCourierID *uuid.UUID
	AssignmentID      *uuid.UUID
	OTPCode           *string
	OTPExpiresAt      *time.Time
	AssignedAt        *time.Time
	DeliveredAt       *time.Time
}

// Order is the root aggregate created atomically at checkout. Immutable
// except for nested ShopOrder mutation; never deleted.
type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	PaymentMethod PaymentMethod
	Address       DeliveryAddress
	TotalAmount   decimal.Decimal
	OrderedAt     time.Time
	ShopOrders    []ShopOrder
}

// ShopOrderByID returns the embedded ShopOrder with the given id, or nil.
func (o *Order) ShopOrderByID(id uuid.UUID) *ShopOrder {
	for i := range o.ShopOrders {
		if o.ShopOrders[i].ID == id {
			return &o.ShopOrders[i]
		}
	}
	return nil
}

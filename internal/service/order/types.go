package order

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quickbites-dispatch/internal/domain"
)

// ShopInfo is the full shop object some carts send inline.
type ShopInfo struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
}

// ShopRef is the tagged union carts use for an item's shop: either a bare id
// or a full nested object. Exactly one form is expected; Info wins when both
// are present.
type ShopRef struct {
	ID   uuid.UUID
	Info *ShopInfo
}

// CheckoutItem is one cart line at checkout.
type CheckoutItem struct {
	ItemID   uuid.UUID
	Name     string
	Price    decimal.Decimal
	Quantity int
	Shop     ShopRef
}

// CheckoutInput is everything checkout needs to build the Order aggregate.
// TotalAmount may be zero, in which case it is computed as the sum of shop
// subtotals; a non-zero value is stored as sent (delivery fees may be
// additive upstream) and is not validated against the subtotal sum.
type CheckoutInput struct {
	UserID        uuid.UUID
	PaymentMethod domain.PaymentMethod
	Address       domain.DeliveryAddress
	TotalAmount   decimal.Decimal
	Items         []CheckoutItem
}

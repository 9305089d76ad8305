package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quickbites-dispatch/internal/domain"
)

// AssignmentNotice is the payload fanned out to each candidate courier when a
// shop order goes out for delivery.
type AssignmentNotice struct {
	AssignmentID uuid.UUID       `json:"assignment_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ShopOrderID  uuid.UUID       `json:"shop_order_id"`
	ShopID       uuid.UUID       `json:"shop_id"`
	AddressText  string          `json:"address_text"`
	Point        domain.GeoPoint `json:"point"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// OTPNotice tells the customer the delivery confirmation code.
type OTPNotice struct {
	ShopOrderID uuid.UUID `json:"shop_order_id"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Notifier pushes messages to recipients. Delivery is fire-and-forget: the
// dispatch core never awaits confirmation, callers only log failures.
type Notifier interface {
	CourierAssignment(ctx context.Context, courierID uuid.UUID, n AssignmentNotice) error
	CustomerOTP(ctx context.Context, userID uuid.UUID, n OTPNotice) error
}

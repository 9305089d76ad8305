package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type addressRequest struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type shopInfoRequest struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

// shopRefRequest accepts the two shapes carts send for an item's shop: a
// bare id string, or a nested shop object.
type shopRefRequest struct {
	ID   uuid.UUID
	Info *shopInfoRequest
}

func (s *shopRefRequest) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id uuid.UUID
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("shop ref id: %w", err)
		}
		*s = shopRefRequest{ID: id}
		return nil
	}
	var info shopInfoRequest
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("shop ref object: %w", err)
	}
	*s = shopRefRequest{ID: info.ID, Info: &info}
	return nil
}

type checkoutItemRequest struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Shop     shopRefRequest  `json:"shop"`
}

type checkoutRequest struct {
	UserID        uuid.UUID             `json:"user_id"`
	PaymentMethod string                `json:"payment_method"`
	Address       addressRequest        `json:"address"`
	TotalAmount   decimal.Decimal       `json:"total_amount"`
	Items         []checkoutItemRequest `json:"items"`
}

type orderItemResponse struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type shopOrderResponse struct {
	ID                uuid.UUID           `json:"id"`
	ShopID            uuid.UUID           `json:"shop_id"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	Status            string              `json:"status"`
	AssignedCourierID *uuid.UUID          `json:"assigned_courier_id,omitempty"`
	AssignmentID      *uuid.UUID          `json:"assignment_id,omitempty"`
	AssignedAt        *time.Time          `json:"assigned_at,omitempty"`
	DeliveredAt       *time.Time          `json:"delivered_at,omitempty"`
	Items             []orderItemResponse `json:"items"`
}

type orderResponse struct {
	ID            uuid.UUID           `json:"id"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod string              `json:"payment_method"`
	Address       addressRequest      `json:"address"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	OrderedAt     time.Time           `json:"ordered_at"`
	ShopOrders    []shopOrderResponse `json:"shop_orders"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

type assignmentResponse struct {
	ID          uuid.UUID   `json:"id"`
	OrderID     uuid.UUID   `json:"order_id"`
	ShopOrderID uuid.UUID   `json:"shop_order_id"`
	ShopID      uuid.UUID   `json:"shop_id"`
	Status      string      `json:"status"`
	AssignedTo  *uuid.UUID  `json:"assigned_to,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	AcceptedAt  *time.Time  `json:"accepted_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type transitionResponse struct {
	ShopOrderID    uuid.UUID           `json:"shop_order_id"`
	Status         string              `json:"status"`
	Assignment     *assignmentResponse `json:"assignment,omitempty"`
	CandidateCount int                 `json:"candidate_count"`
	AvailableCount int                 `json:"available_count"`
	NoCouriers     bool                `json:"no_couriers,omitempty"`
}

type acceptResponse struct {
	Assignment assignmentResponse `json:"assignment"`
	Order      *orderResponse     `json:"order,omitempty"`
}

type courierAssignmentResponse struct {
	Assignment assignmentResponse `json:"assignment"`
	Order      *orderResponse     `json:"order,omitempty"`
}

type otpGenerateResponse struct {
	ShopOrderID uuid.UUID `json:"shop_order_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type otpVerifyRequest struct {
	Code string `json:"code"`
}

type otpVerifyResponse struct {
	ShopOrderID uuid.UUID `json:"shop_order_id"`
	Status      string    `json:"status"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

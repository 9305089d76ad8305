package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/service/order"
)

// CheckoutEventDTO is the storefront checkout payload.
type CheckoutEventDTO struct {
	UserID        uuid.UUID       `json:"user_id"`
	PaymentMethod string          `json:"payment_method"`
	Address       AddressDTO      `json:"address"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Items         []ItemDTO       `json:"items"`
}

// AddressDTO is a delivery address with its geocoded point.
type AddressDTO struct {
	Text string  `json:"text"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// ItemDTO is one cart line.
type ItemDTO struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Shop     ShopRefDTO      `json:"shop"`
}

// ShopRefDTO accepts the two shapes carts send for an item's shop: a bare id
// string, or a nested shop object.
type ShopRefDTO struct {
	ID   uuid.UUID
	Info *ShopInfoDTO
}

// ShopInfoDTO is the nested shop object form.
type ShopInfoDTO struct {
	ID      uuid.UUID `json:"id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Name    string    `json:"name"`
}

// UnmarshalJSON decodes either a quoted id or a shop object.
func (r *ShopRefDTO) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var id uuid.UUID
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("shop ref id: %w", err)
		}
		*r = ShopRefDTO{ID: id}
		return nil
	}
	var info ShopInfoDTO
	if err := json.Unmarshal(data, &info); err != nil {
		return fmt.Errorf("shop ref object: %w", err)
	}
	*r = ShopRefDTO{ID: info.ID, Info: &info}
	return nil
}

// ToDomain converts the DTO into a checkout input.
func ToDomain(dto CheckoutEventDTO) order.CheckoutInput {
	in := order.CheckoutInput{
		UserID:        dto.UserID,
		PaymentMethod: domain.PaymentMethod(dto.PaymentMethod),
		Address: domain.DeliveryAddress{
			Text: dto.Address.Text,
			Lat:  dto.Address.Lat,
			Lng:  dto.Address.Lng,
		},
		TotalAmount: dto.TotalAmount,
	}
	for _, it := range dto.Items {
		ref := order.ShopRef{ID: it.Shop.ID}
		if it.Shop.Info != nil {
			ref.Info = &order.ShopInfo{
				ID:      it.Shop.Info.ID,
				OwnerID: it.Shop.Info.OwnerID,
				Name:    it.Shop.Info.Name,
			}
		}
		in.Items = append(in.Items, order.CheckoutItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Shop:     ref,
		})
	}
	return in
}

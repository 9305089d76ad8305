package order

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

type shopGroup struct {
	shopID  uuid.UUID
	ownerID uuid.UUID
	items   []domain.OrderItem
}

// groupByShop resolves each line's shop reference to a canonical shop id and
// owner, then groups lines per shop in first-seen order. Carts send shops in
// two shapes: a bare id, or a full nested object; the nested form also
// refreshes the shop directory.
func (s *Service) groupByShop(ctx context.Context, items []CheckoutItem) ([]shopGroup, error) {
	var (
		groups []shopGroup
		index  = make(map[uuid.UUID]int)
	)

	for _, it := range items {
		shopID, ownerID, err := s.resolveShop(ctx, it.Shop)
		if err != nil {
			return nil, err
		}

		n, seen := index[shopID]
		if !seen {
			groups = append(groups, shopGroup{shopID: shopID, ownerID: ownerID})
			n = len(groups) - 1
			index[shopID] = n
		}
		groups[n].items = append(groups[n].items, domain.OrderItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return groups, nil
}

func (s *Service) resolveShop(ctx context.Context, ref ShopRef) (uuid.UUID, uuid.UUID, error) {
	if ref.Info != nil {
		if ref.Info.ID == uuid.Nil || ref.Info.OwnerID == uuid.Nil {
			return uuid.Nil, uuid.Nil, apperr.ErrInvalid
		}
		// keep the projection fresh; failure here must not fail checkout
		if err := s.shops.SyncShop(ctx, ref.Info.ID, ref.Info.OwnerID, ref.Info.Name); err != nil {
			s.logger.Warn("shop directory sync failed",
				logx.String("shop_id", ref.Info.ID.String()),
				logx.Any("err", err),
			)
		}
		return ref.Info.ID, ref.Info.OwnerID, nil
	}

	if ref.ID == uuid.Nil {
		return uuid.Nil, uuid.Nil, apperr.ErrInvalid
	}
	ownerID, err := s.shops.ResolveOwner(ctx, ref.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return uuid.Nil, uuid.Nil, apperr.ErrInvalid
		}
		return uuid.Nil, uuid.Nil, err
	}
	return ref.ID, ownerID, nil
}

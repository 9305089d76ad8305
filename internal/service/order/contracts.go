package order

import (
	"context"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/domain"
)

type ordersRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

// shopDirectory resolves bare shop ids to their owners and absorbs fresh
// shop objects seen at checkout.
type shopDirectory interface {
	ResolveOwner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error)
	SyncShop(ctx context.Context, shopID, ownerID uuid.UUID, name string) error
}

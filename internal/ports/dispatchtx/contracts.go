package dispatchtx

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/domain"
)

// Repository is the transaction-scoped view of the dispatch store: shop-order
// rows plus the assignment ledger. Read methods return nil (not an error) for
// missing rows.
type Repository interface {
	GetShopOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.ShopOrder, error)
	GetOrderHeader(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	UpdateShopOrderStatus(ctx context.Context, id uuid.UUID, status domain.ShopOrderStatus) error
	SetShopOrderAssignment(ctx context.Context, id, assignmentID uuid.UUID) error
	SetShopOrderCourier(ctx context.Context, id, courierID uuid.UUID, at time.Time) error
	SetShopOrderOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	MarkShopOrderDelivered(ctx context.Context, id uuid.UUID, at time.Time) error

	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	GetAssignmentForUpdate(ctx context.Context, id uuid.UUID) (*domain.Assignment, error)
	GetLiveAssignmentByShopOrder(ctx context.Context, shopOrderID uuid.UUID) (*domain.Assignment, error)
	BusyCouriers(ctx context.Context, courierIDs []uuid.UUID) ([]uuid.UUID, error)
	CourierIsBusy(ctx context.Context, courierID uuid.UUID) (bool, error)
	MarkAssignmentAssigned(ctx context.Context, id, courierID uuid.UUID, at time.Time) (bool, error)
	CompleteAssignment(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Runner is a transaction runner.
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

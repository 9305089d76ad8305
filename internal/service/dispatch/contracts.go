package dispatch

import (
	"context"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/notify"
	"quickbites-dispatch/internal/ports/dispatchtx"
)

type dispatchRepository interface {
	WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error
	GetActiveByCourier(ctx context.Context, courierID uuid.UUID) (*domain.Assignment, error)
}

type geoIndex interface {
	FindNearby(ctx context.Context, p domain.GeoPoint) ([]domain.NearbyCourier, error)
}

type ordersReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type notifier interface {
	CourierAssignment(ctx context.Context, courierID uuid.UUID, n notify.AssignmentNotice) error
}

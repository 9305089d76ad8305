package handlers

import (
	"context"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/geo"
	"quickbites-dispatch/internal/service/dispatch"
	"quickbites-dispatch/internal/service/order"
	"quickbites-dispatch/internal/service/otp"
)

type orderUsecase interface {
	Checkout(ctx context.Context, in order.CheckoutInput) (*domain.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

// NewOrderUsecase wires an order.Service into an orderUsecase.
func NewOrderUsecase(svc *order.Service) orderUsecase {
	return svc
}

type dispatchUsecase interface {
	Transition(ctx context.Context, shopOrderID, actorOwnerID uuid.UUID, newStatus domain.ShopOrderStatus) (dispatch.TransitionResult, error)
	Accept(ctx context.Context, assignmentID, courierID uuid.UUID) (dispatch.AcceptResult, error)
	CurrentAssignment(ctx context.Context, courierID uuid.UUID) (*dispatch.CourierAssignment, error)
}

// NewDispatchUsecase wires a dispatch.Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type otpUsecase interface {
	Generate(ctx context.Context, shopOrderID, actorCourierID uuid.UUID) (otp.GenerateResult, error)
	Verify(ctx context.Context, shopOrderID, actorCourierID uuid.UUID, submitted string) (otp.VerifyResult, error)
}

// NewOTPUsecase wires an otp.Service into an otpUsecase.
func NewOTPUsecase(svc *otp.Service) otpUsecase {
	return svc
}

type locationIndex interface {
	UpdateLocation(ctx context.Context, courierID uuid.UUID, p domain.GeoPoint) error
	MarkOnline(ctx context.Context, courierID uuid.UUID) error
	MarkOffline(ctx context.Context, courierID uuid.UUID) error
}

// NewLocationIndex wires a geo.Index into a locationIndex.
func NewLocationIndex(idx *geo.Index) locationIndex {
	return idx
}

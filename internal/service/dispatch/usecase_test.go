package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/notify"
	"quickbites-dispatch/internal/ports/dispatchtx"
	"quickbites-dispatch/internal/service/dispatch"
)

type stubTx struct {
	getShopOrderFn   func(context.Context, uuid.UUID) (*domain.ShopOrder, error)
	getOrderHeaderFn func(context.Context, uuid.UUID) (*domain.Order, error)
	updateStatusFn   func(context.Context, uuid.UUID, domain.ShopOrderStatus) error
	setAssignmentFn  func(context.Context, uuid.UUID, uuid.UUID) error
	setCourierFn     func(context.Context, uuid.UUID, uuid.UUID, time.Time) error
	setOTPFn         func(context.Context, uuid.UUID, string, time.Time) error
	markDeliveredFn  func(context.Context, uuid.UUID, time.Time) error
	insertFn         func(context.Context, *domain.Assignment) error
	getAssignmentFn  func(context.Context, uuid.UUID) (*domain.Assignment, error)
	getLiveFn        func(context.Context, uuid.UUID) (*domain.Assignment, error)
	busyCouriersFn   func(context.Context, []uuid.UUID) ([]uuid.UUID, error)
	courierIsBusyFn  func(context.Context, uuid.UUID) (bool, error)
	markAssignedFn   func(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error)
	completeFn       func(context.Context, uuid.UUID, time.Time) error
}

func (s *stubTx) GetShopOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.ShopOrder, error) {
	if s.getShopOrderFn == nil {
		return nil, nil
	}
	return s.getShopOrderFn(ctx, id)
}
func (s *stubTx) GetOrderHeader(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.getOrderHeaderFn == nil {
		return nil, nil
	}
	return s.getOrderHeaderFn(ctx, id)
}
func (s *stubTx) UpdateShopOrderStatus(ctx context.Context, id uuid.UUID, st domain.ShopOrderStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, id, st)
}
func (s *stubTx) SetShopOrderAssignment(ctx context.Context, id, assignmentID uuid.UUID) error {
	if s.setAssignmentFn == nil {
		return nil
	}
	return s.setAssignmentFn(ctx, id, assignmentID)
}
func (s *stubTx) SetShopOrderCourier(ctx context.Context, id, courierID uuid.UUID, at time.Time) error {
	if s.setCourierFn == nil {
		return nil
	}
	return s.setCourierFn(ctx, id, courierID, at)
}
func (s *stubTx) SetShopOrderOTP(ctx context.Context, id uuid.UUID, code string, exp time.Time) error {
	if s.setOTPFn == nil {
		return nil
	}
	return s.setOTPFn(ctx, id, code, exp)
}
func (s *stubTx) MarkShopOrderDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.markDeliveredFn == nil {
		return nil
	}
	return s.markDeliveredFn(ctx, id, at)
}
func (s *stubTx) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	if s.insertFn == nil {
		return nil
	}
	return s.insertFn(ctx, a)
}
func (s *stubTx) GetAssignmentForUpdate(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	if s.getAssignmentFn == nil {
		return nil, nil
	}
	return s.getAssignmentFn(ctx, id)
}
func (s *stubTx) GetLiveAssignmentByShopOrder(ctx context.Context, shopOrderID uuid.UUID) (*domain.Assignment, error) {
	if s.getLiveFn == nil {
		return nil, nil
	}
	return s.getLiveFn(ctx, shopOrderID)
}
func (s *stubTx) BusyCouriers(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	if s.busyCouriersFn == nil {
		return nil, nil
	}
	return s.busyCouriersFn(ctx, ids)
}
func (s *stubTx) CourierIsBusy(ctx context.Context, id uuid.UUID) (bool, error) {
	if s.courierIsBusyFn == nil {
		return false, nil
	}
	return s.courierIsBusyFn(ctx, id)
}
func (s *stubTx) MarkAssignmentAssigned(ctx context.Context, id, courierID uuid.UUID, at time.Time) (bool, error) {
	if s.markAssignedFn == nil {
		return true, nil
	}
	return s.markAssignedFn(ctx, id, courierID, at)
}
func (s *stubTx) CompleteAssignment(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, id, at)
}

type stubRepo struct {
	tx       *stubTx
	activeFn func(context.Context, uuid.UUID) (*domain.Assignment, error)
}

func (s *stubRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return fn(s.tx)
}
func (s *stubRepo) GetActiveByCourier(ctx context.Context, courierID uuid.UUID) (*domain.Assignment, error) {
	if s.activeFn == nil {
		return nil, nil
	}
	return s.activeFn(ctx, courierID)
}

type stubGeo struct {
	nearbyFn func(context.Context, domain.GeoPoint) ([]domain.NearbyCourier, error)
}

func (s *stubGeo) FindNearby(ctx context.Context, p domain.GeoPoint) ([]domain.NearbyCourier, error) {
	if s.nearbyFn == nil {
		return nil, nil
	}
	return s.nearbyFn(ctx, p)
}

type stubOrders struct {
	getFn func(context.Context, uuid.UUID) (*domain.Order, error)
}

func (s *stubOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

type recordingNotifier struct {
	couriers []uuid.UUID
}

func (r *recordingNotifier) CourierAssignment(_ context.Context, courierID uuid.UUID, _ notify.AssignmentNotice) error {
	r.couriers = append(r.couriers, courierID)
	return nil
}

func newService(repo *stubRepo, orders *stubOrders, geo *stubGeo, n *recordingNotifier) *dispatch.Service {
	return dispatch.NewService(repo, orders, geo, n, nil, 3*time.Second, logx.Nop())
}

func nearby(ids ...uuid.UUID) []domain.NearbyCourier {
	out := make([]domain.NearbyCourier, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.NearbyCourier{CourierID: id})
	}
	return out
}

func TestTransition_BroadcastsToAvailableCouriers(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	orderID := uuid.New()
	shopOrderID := uuid.New()
	free1, free2, busy := uuid.New(), uuid.New(), uuid.New()

	var (
		statusWritten domain.ShopOrderStatus
		inserted      *domain.Assignment
		assignmentRef uuid.UUID
	)

	tx := &stubTx{
		getShopOrderFn: func(_ context.Context, id uuid.UUID) (*domain.ShopOrder, error) {
			require.Equal(t, shopOrderID, id)
			return &domain.ShopOrder{
				ID: shopOrderID, OrderID: orderID, ShopID: uuid.New(),
				OwnerID: owner, Status: domain.StatusPreparing,
			}, nil
		},
		getOrderHeaderFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
			require.Equal(t, orderID, id)
			return &domain.Order{
				ID:      orderID,
				Address: domain.DeliveryAddress{Text: "12 Baker St", Lat: 51.5, Lng: -0.15},
			}, nil
		},
		updateStatusFn: func(_ context.Context, _ uuid.UUID, st domain.ShopOrderStatus) error {
			statusWritten = st
			return nil
		},
		busyCouriersFn: func(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
			require.Len(t, ids, 3)
			return []uuid.UUID{busy}, nil
		},
		insertFn: func(_ context.Context, a *domain.Assignment) error {
			inserted = a
			return nil
		},
		setAssignmentFn: func(_ context.Context, _ uuid.UUID, assignmentID uuid.UUID) error {
			assignmentRef = assignmentID
			return nil
		},
	}
	geo := &stubGeo{nearbyFn: func(_ context.Context, p domain.GeoPoint) ([]domain.NearbyCourier, error) {
		require.InDelta(t, 51.5, p.Lat, 1e-9)
		return nearby(free1, busy, free2), nil
	}}
	notif := &recordingNotifier{}

	svc := newService(&stubRepo{tx: tx}, &stubOrders{}, geo, notif)

	res, err := svc.Transition(context.Background(), shopOrderID, owner, domain.StatusOutForDelivery)
	require.NoError(t, err)

	require.Equal(t, domain.StatusOutForDelivery, statusWritten)
	require.Equal(t, 3, res.CandidateCount)
	require.Equal(t, 2, res.AvailableCount)
	require.False(t, res.NoCouriers)

	require.NotNil(t, inserted)
	require.Equal(t, domain.AssignmentBroadcasted, inserted.Status)
	require.ElementsMatch(t, []uuid.UUID{free1, free2}, inserted.BroadcastTo)
	require.Equal(t, inserted.ID, assignmentRef)

	require.ElementsMatch(t, []uuid.UUID{free1, free2}, notif.couriers)
}

func TestTransition_NoCouriersIsSoftOutcome(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	shopOrderID := uuid.New()
	busy := uuid.New()

	inserts := 0
	tx := &stubTx{
		getShopOrderFn: func(_ context.Context, _ uuid.UUID) (*domain.ShopOrder, error) {
			return &domain.ShopOrder{ID: shopOrderID, OrderID: uuid.New(), OwnerID: owner, Status: domain.StatusPreparing}, nil
		},
		getOrderHeaderFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, Address: domain.DeliveryAddress{Lat: 40.7, Lng: -74.0}}, nil
		},
		busyCouriersFn: func(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
			return ids, nil
		},
		insertFn: func(_ context.Context, _ *domain.Assignment) error {
			inserts++
			return nil
		},
	}
	geo := &stubGeo{nearbyFn: func(_ context.Context, _ domain.GeoPoint) ([]domain.NearbyCourier, error) {
		return nearby(busy), nil
	}}
	notif := &recordingNotifier{}

	svc := newService(&stubRepo{tx: tx}, &stubOrders{}, geo, notif)

	res, err := svc.Transition(context.Background(), shopOrderID, owner, domain.StatusOutForDelivery)
	require.NoError(t, err)
	require.True(t, res.NoCouriers)
	require.Nil(t, res.Assignment)
	require.Equal(t, domain.StatusOutForDelivery, res.Status)
	require.Zero(t, inserts)
	require.Empty(t, notif.couriers)
}

func TestTransition_ReassertDoesNotRebroadcast(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	shopOrderID := uuid.New()
	existing := uuid.New()

	geoCalls := 0
	tx := &stubTx{
		getShopOrderFn: func(_ context.Context, _ uuid.UUID) (*domain.ShopOrder, error) {
			return &domain.ShopOrder{
				ID: shopOrderID, OrderID: uuid.New(), OwnerID: owner,
				Status: domain.StatusOutForDelivery, AssignmentID: &existing,
			}, nil
		},
	}
	geo := &stubGeo{nearbyFn: func(_ context.Context, _ domain.GeoPoint) ([]domain.NearbyCourier, error) {
		geoCalls++
		return nil, nil
	}}

	svc := newService(&stubRepo{tx: tx}, &stubOrders{}, geo, &recordingNotifier{})

	res, err := svc.Transition(context.Background(), shopOrderID, owner, domain.StatusOutForDelivery)
	require.NoError(t, err)
	require.Nil(t, res.Assignment)
	require.Zero(t, geoCalls)
}

func TestTransition_Errors(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	stranger := uuid.New()
	shopOrderID := uuid.New()

	pendingOrder := func() *domain.ShopOrder {
		return &domain.ShopOrder{ID: shopOrderID, OrderID: uuid.New(), OwnerID: owner, Status: domain.StatusPending}
	}

	cases := []struct {
		name    string
		actor   uuid.UUID
		status  domain.ShopOrderStatus
		shopFn  func(context.Context, uuid.UUID) (*domain.ShopOrder, error)
		wantErr error
	}{
		{
			name:    "unknown status value",
			actor:   owner,
			status:  domain.ShopOrderStatus("cooked"),
			wantErr: apperr.ErrInvalidStatus,
		},
		{
			name:   "missing shop order",
			actor:  owner,
			status: domain.StatusPreparing,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				return nil, nil
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:   "stranger is not the owner",
			actor:  stranger,
			status: domain.StatusPreparing,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				return pendingOrder(), nil
			},
			wantErr: apperr.ErrNotAuthorized,
		},
		{
			name:   "delivered is unreachable without a code",
			actor:  owner,
			status: domain.StatusDelivered,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				return pendingOrder(), nil
			},
			wantErr: apperr.ErrInvalidStatus,
		},
		{
			name:   "no going backwards",
			actor:  owner,
			status: domain.StatusPending,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				so := pendingOrder()
				so.Status = domain.StatusPreparing
				return so, nil
			},
			wantErr: apperr.ErrInvalidStatus,
		},
		{
			name:   "cancel only from pending",
			actor:  owner,
			status: domain.StatusCancelled,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				so := pendingOrder()
				so.Status = domain.StatusPreparing
				return so, nil
			},
			wantErr: apperr.ErrInvalidStatus,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tx := &stubTx{getShopOrderFn: tc.shopFn}
			svc := newService(&stubRepo{tx: tx}, &stubOrders{}, &stubGeo{}, &recordingNotifier{})

			_, err := svc.Transition(context.Background(), shopOrderID, tc.actor, tc.status)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestAccept_FirstCourierWins(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	assignmentID := uuid.New()
	orderID := uuid.New()
	shopOrderID := uuid.New()

	var courierSet *uuid.UUID
	tx := &stubTx{
		getAssignmentFn: func(_ context.Context, id uuid.UUID) (*domain.Assignment, error) {
			require.Equal(t, assignmentID, id)
			return &domain.Assignment{
				ID: assignmentID, OrderID: orderID, ShopOrderID: shopOrderID,
				BroadcastTo: []uuid.UUID{courier, uuid.New()},
				Status:      domain.AssignmentBroadcasted,
			}, nil
		},
		setCourierFn: func(_ context.Context, id, c uuid.UUID, _ time.Time) error {
			require.Equal(t, shopOrderID, id)
			courierSet = &c
			return nil
		},
	}
	orders := &stubOrders{getFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
		return &domain.Order{ID: id}, nil
	}}

	svc := newService(&stubRepo{tx: tx}, orders, &stubGeo{}, &recordingNotifier{})

	res, err := svc.Accept(context.Background(), assignmentID, courier)
	require.NoError(t, err)
	require.Equal(t, domain.AssignmentAssigned, res.Assignment.Status)
	require.NotNil(t, res.Assignment.AssignedTo)
	require.Equal(t, courier, *res.Assignment.AssignedTo)
	require.NotNil(t, res.Assignment.AcceptedAt)
	require.NotNil(t, res.Order)
	require.NotNil(t, courierSet)
	require.Equal(t, courier, *courierSet)
}

func TestAccept_Conflicts(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	other := uuid.New()
	assignmentID := uuid.New()

	broadcasted := func(to ...uuid.UUID) *domain.Assignment {
		return &domain.Assignment{
			ID: assignmentID, OrderID: uuid.New(), ShopOrderID: uuid.New(),
			BroadcastTo: to, Status: domain.AssignmentBroadcasted,
		}
	}

	cases := []struct {
		name    string
		tx      *stubTx
		wantErr error
	}{
		{
			name:    "assignment missing",
			tx:      &stubTx{},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "already assigned to someone else",
			tx: &stubTx{
				getAssignmentFn: func(context.Context, uuid.UUID) (*domain.Assignment, error) {
					a := broadcasted(courier, other)
					a.Status = domain.AssignmentAssigned
					a.AssignedTo = &other
					return a, nil
				},
			},
			wantErr: apperr.ErrNotBroadcasted,
		},
		{
			name: "courier was not in the broadcast set",
			tx: &stubTx{
				getAssignmentFn: func(context.Context, uuid.UUID) (*domain.Assignment, error) {
					return broadcasted(other), nil
				},
			},
			wantErr: apperr.ErrNotBroadcasted,
		},
		{
			name: "courier already on another delivery",
			tx: &stubTx{
				getAssignmentFn: func(context.Context, uuid.UUID) (*domain.Assignment, error) {
					return broadcasted(courier), nil
				},
				courierIsBusyFn: func(context.Context, uuid.UUID) (bool, error) {
					return true, nil
				},
			},
			wantErr: apperr.ErrCourierBusy,
		},
		{
			name: "lost the conditional update race",
			tx: &stubTx{
				getAssignmentFn: func(context.Context, uuid.UUID) (*domain.Assignment, error) {
					return broadcasted(courier), nil
				},
				markAssignedFn: func(context.Context, uuid.UUID, uuid.UUID, time.Time) (bool, error) {
					return false, nil
				},
			},
			wantErr: apperr.ErrAlreadyTaken,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newService(&stubRepo{tx: tc.tx}, &stubOrders{}, &stubGeo{}, &recordingNotifier{})

			_, err := svc.Accept(context.Background(), assignmentID, courier)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCurrentAssignment_NilWhenFree(t *testing.T) {
	t.Parallel()

	svc := newService(&stubRepo{tx: &stubTx{}}, &stubOrders{}, &stubGeo{}, &recordingNotifier{})

	res, err := svc.CurrentAssignment(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestCurrentAssignment_ReturnsOrderView(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	orderID := uuid.New()
	active := &domain.Assignment{ID: uuid.New(), OrderID: orderID, Status: domain.AssignmentAssigned, AssignedTo: &courier}

	repo := &stubRepo{
		tx: &stubTx{},
		activeFn: func(_ context.Context, id uuid.UUID) (*domain.Assignment, error) {
			require.Equal(t, courier, id)
			return active, nil
		},
	}
	orders := &stubOrders{getFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
		require.Equal(t, orderID, id)
		return &domain.Order{ID: id}, nil
	}}

	svc := newService(repo, orders, &stubGeo{}, &recordingNotifier{})

	res, err := svc.CurrentAssignment(context.Background(), courier)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, active.ID, res.Assignment.ID)
	require.NotNil(t, res.Order)
	require.Equal(t, orderID, res.Order.ID)
}

package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/metrics"
	"quickbites-dispatch/internal/notify"
	"quickbites-dispatch/internal/ports/dispatchtx"
)

// TransitionResult reports the outcome of a shop-order status transition.
// NoCouriers is a valid soft outcome, never an error: the status write is
// persisted and the owner may re-trigger the transition later.
type TransitionResult struct {
	ShopOrderID    uuid.UUID
	Status         domain.ShopOrderStatus
	Assignment     *domain.Assignment
	CandidateCount int
	AvailableCount int
	NoCouriers     bool
}

// AcceptResult carries the committed assignment and the updated order view.
type AcceptResult struct {
	Assignment domain.Assignment
	Order      *domain.Order
}

// CourierAssignment is a courier's current live assignment plus its order.
type CourierAssignment struct {
	Assignment domain.Assignment
	Order      *domain.Order
}

// Service coordinates the order-to-courier dispatch workflow: status
// transitions, nearby-courier broadcasts and single-assignment acceptance.
type Service struct {
	repo             dispatchRepository
	orders           ordersReader
	geo              geoIndex
	notifier         notifier
	stats            *metrics.Dispatch
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
	newID            func() uuid.UUID
}

// NewService creates a dispatch Service.
func NewService(
	repo dispatchRepository,
	orders ordersReader,
	geo geoIndex,
	n notifier,
	stats *metrics.Dispatch,
	timeout time.Duration,
	logger logx.Logger,
) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		orders:           orders,
		geo:              geo,
		notifier:         n,
		stats:            stats,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.New,
	}
}

// WithClock overrides the time source. Test seam.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Transition applies an owner-driven status change to one shop order.
// Entering "out for delivery" with no assignment reference triggers the
// broadcast: nearby online couriers minus busy ones, persisted as one
// Assignment and fanned out through the notifier.
func (s *Service) Transition(
	ctx context.Context,
	shopOrderID, actorOwnerID uuid.UUID,
	newStatus domain.ShopOrderStatus,
) (TransitionResult, error) {
	if !newStatus.Valid() {
		return TransitionResult{}, apperr.ErrInvalidStatus
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		res    TransitionResult
		notice notify.AssignmentNotice
	)

	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		so, err := tx.GetShopOrderForUpdate(ctx, shopOrderID)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.ErrNotFound
		}
		if so.OwnerID != actorOwnerID {
			return apperr.ErrNotAuthorized
		}
		if !so.Status.CanTransitionTo(newStatus) {
			return apperr.ErrInvalidStatus
		}

		if so.Status != newStatus {
			if err := tx.UpdateShopOrderStatus(ctx, shopOrderID, newStatus); err != nil {
				return err
			}
		}
		res = TransitionResult{ShopOrderID: shopOrderID, Status: newStatus}

		// dispatch runs only on entering "out for delivery" with no
		// existing assignment reference
		if newStatus != domain.StatusOutForDelivery || so.AssignmentID != nil {
			return nil
		}

		ord, err := tx.GetOrderHeader(ctx, so.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return apperr.ErrNotFound
		}

		point := domain.GeoPoint{Lat: ord.Address.Lat, Lng: ord.Address.Lng}
		candidates, err := s.geo.FindNearby(ctx, point)
		if err != nil {
			return err
		}
		res.CandidateCount = len(candidates)

		ids := make([]uuid.UUID, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.CourierID)
		}
		busy, err := tx.BusyCouriers(ctx, ids)
		if err != nil {
			return err
		}
		available := subtract(ids, busy)
		res.AvailableCount = len(available)

		if len(available) == 0 {
			res.NoCouriers = true
			return nil
		}

		a := &domain.Assignment{
			ID:          s.newID(),
			OrderID:     so.OrderID,
			ShopID:      so.ShopID,
			ShopOrderID: shopOrderID,
			BroadcastTo: available,
			Status:      domain.AssignmentBroadcasted,
			CreatedAt:   s.now(),
		}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			return err
		}
		if err := tx.SetShopOrderAssignment(ctx, shopOrderID, a.ID); err != nil {
			return err
		}
		res.Assignment = a
		notice = notify.AssignmentNotice{
			AssignmentID: a.ID,
			OrderID:      so.OrderID,
			ShopOrderID:  shopOrderID,
			ShopID:       so.ShopID,
			AddressText:  ord.Address.Text,
			Point:        point,
			Subtotal:     so.Subtotal,
		}
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	switch {
	case res.Assignment != nil:
		if s.stats != nil {
			s.stats.Broadcasts.Inc()
		}
		s.logger.Info("assignment broadcasted",
			logx.String("event", "assignment_broadcasted"),
			logx.String("shop_order_id", shopOrderID.String()),
			logx.String("assignment_id", res.Assignment.ID.String()),
			logx.Int("candidates", res.CandidateCount),
			logx.Int("available", res.AvailableCount),
		)
		s.fanOut(ctx, res.Assignment.BroadcastTo, notice)
	case res.NoCouriers:
		if s.stats != nil {
			s.stats.EmptyBroadcasts.Inc()
		}
		s.logger.Info("no couriers available",
			logx.String("event", "dispatch_no_couriers"),
			logx.String("shop_order_id", shopOrderID.String()),
			logx.Int("candidates", res.CandidateCount),
		)
	}

	return res, nil
}

// fanOut delivers one notice per courier. Notification is fire-and-forget:
// delivery failures are logged and never surface to the caller.
func (s *Service) fanOut(ctx context.Context, courierIDs []uuid.UUID, n notify.AssignmentNotice) {
	for _, id := range courierIDs {
		if err := s.notifier.CourierAssignment(ctx, id, n); err != nil {
			s.logger.Warn("courier notification failed",
				logx.String("courier_id", id.String()),
				logx.String("assignment_id", n.AssignmentID.String()),
				logx.Any("err", err),
			)
		}
	}
}

// Accept commits the broadcasted→assigned transition for one courier. The
// conditional update inside the ledger closes the race between two couriers
// accepting concurrently.
func (s *Service) Accept(ctx context.Context, assignmentID, courierID uuid.UUID) (AcceptResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var accepted domain.Assignment

	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAssignmentForUpdate(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.Status != domain.AssignmentBroadcasted {
			return apperr.ErrNotBroadcasted
		}
		if !a.BroadcastedTo(courierID) {
			return apperr.ErrNotBroadcasted
		}

		busy, err := tx.CourierIsBusy(ctx, courierID)
		if err != nil {
			return err
		}
		if busy {
			return apperr.ErrCourierBusy
		}

		now := s.now()
		ok, err := tx.MarkAssignmentAssigned(ctx, assignmentID, courierID, now)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyTaken
		}
		if err := tx.SetShopOrderCourier(ctx, a.ShopOrderID, courierID, now); err != nil {
			return err
		}

		accepted = *a
		accepted.Status = domain.AssignmentAssigned
		accepted.AssignedTo = &courierID
		accepted.AcceptedAt = &now
		return nil
	})
	if err != nil {
		if s.stats != nil && isAcceptConflict(err) {
			s.stats.AcceptConflicts.Inc()
		}
		return AcceptResult{}, err
	}

	s.logger.Info("assignment accepted",
		logx.String("event", "assignment_accepted"),
		logx.String("assignment_id", assignmentID.String()),
		logx.String("courier_id", courierID.String()),
	)

	ord, err := s.orders.GetByID(ctx, accepted.OrderID)
	if err != nil {
		return AcceptResult{}, err
	}
	return AcceptResult{Assignment: accepted, Order: ord}, nil
}

// CurrentAssignment returns the courier's live assignment with its order, or
// nil when the courier is free.
func (s *Service) CurrentAssignment(ctx context.Context, courierID uuid.UUID) (*CourierAssignment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a, err := s.repo.GetActiveByCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, nil
	}
	ord, err := s.orders.GetByID(ctx, a.OrderID)
	if err != nil {
		return nil, err
	}
	return &CourierAssignment{Assignment: *a, Order: ord}, nil
}

func isAcceptConflict(err error) bool {
	return errors.Is(err, apperr.ErrNotBroadcasted) ||
		errors.Is(err, apperr.ErrAlreadyTaken) ||
		errors.Is(err, apperr.ErrCourierBusy)
}

func subtract(ids, remove []uuid.UUID) []uuid.UUID {
	if len(remove) == 0 {
		return ids
	}
	drop := make(map[uuid.UUID]struct{}, len(remove))
	for _, id := range remove {
		drop[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, skip := drop[id]; !skip {
			out = append(out, id)
		}
	}
	return out
}

package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
)

// Service creates and reads Order aggregates. Creation groups cart lines by
// shop into one ShopOrder per shop, capturing name/price snapshots.
type Service struct {
	repo             ordersRepository
	shops            shopDirectory
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
	newID            func() uuid.UUID
}

// NewService creates an order Service.
func NewService(repo ordersRepository, shops shopDirectory, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		shops:            shops,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
		newID:            uuid.New,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Checkout validates the input, normalizes shop references, groups lines per
// shop and persists the whole aggregate atomically.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (*domain.Order, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	groups, err := s.groupByShop(ctx, in.Items)
	if err != nil {
		return nil, err
	}

	o := &domain.Order{
		ID:            s.newID(),
		UserID:        in.UserID,
		PaymentMethod: in.PaymentMethod,
		Address:       in.Address,
		OrderedAt:     s.now(),
	}

	sum := decimal.Zero
	for _, g := range groups {
		so := domain.ShopOrder{
			ID:      s.newID(),
			OrderID: o.ID,
			ShopID:  g.shopID,
			OwnerID: g.ownerID,
			Status:  domain.StatusPending,
			Items:   g.items,
		}
		subtotal := decimal.Zero
		for _, it := range g.items {
			subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		so.Subtotal = subtotal
		sum = sum.Add(subtotal)
		o.ShopOrders = append(o.ShopOrders, so)
	}

	// the client total is stored as sent; when absent, fall back to the
	// subtotal sum
	o.TotalAmount = in.TotalAmount
	if o.TotalAmount.IsZero() {
		o.TotalAmount = sum
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		logx.String("event", "order_created"),
		logx.String("order_id", o.ID.String()),
		logx.Int("shop_orders", len(o.ShopOrders)),
	)
	return o, nil
}

// GetByID returns the full aggregate or apperr.ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.ErrNotFound
	}
	return o, nil
}

func validateInput(in CheckoutInput) error {
	if in.UserID == uuid.Nil || !in.PaymentMethod.Valid() || len(in.Items) == 0 {
		return apperr.ErrInvalid
	}
	p := domain.GeoPoint{Lat: in.Address.Lat, Lng: in.Address.Lng}
	if !p.InRange() {
		return apperr.ErrInvalid
	}
	for _, it := range in.Items {
		if it.ItemID == uuid.Nil || it.Name == "" || it.Quantity <= 0 || it.Price.IsNegative() {
			return apperr.ErrInvalid
		}
	}
	return nil
}

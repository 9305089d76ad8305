package order_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/service/order"
)

type stubOrdersRepo struct {
	createFn func(context.Context, *domain.Order) error
	getFn    func(context.Context, uuid.UUID) (*domain.Order, error)
}

func (s *stubOrdersRepo) Create(ctx context.Context, o *domain.Order) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, o)
}
func (s *stubOrdersRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

type stubShops struct {
	owners map[uuid.UUID]uuid.UUID
	synced []uuid.UUID
}

func (s *stubShops) ResolveOwner(_ context.Context, shopID uuid.UUID) (uuid.UUID, error) {
	owner, ok := s.owners[shopID]
	if !ok {
		return uuid.Nil, apperr.ErrNotFound
	}
	return owner, nil
}
func (s *stubShops) SyncShop(_ context.Context, shopID, _ uuid.UUID, _ string) error {
	s.synced = append(s.synced, shopID)
	return nil
}

func newService(repo *stubOrdersRepo, shops *stubShops) *order.Service {
	return order.NewService(repo, shops, 3*time.Second, logx.Nop())
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func validAddress() domain.DeliveryAddress {
	return domain.DeliveryAddress{Text: "1 Main St", Lat: 52.37, Lng: 4.89}
}

func TestCheckout_GroupsLinesPerShop(t *testing.T) {
	t.Parallel()

	shopA, shopB := uuid.New(), uuid.New()
	ownerA, ownerB := uuid.New(), uuid.New()
	shops := &stubShops{owners: map[uuid.UUID]uuid.UUID{shopA: ownerA, shopB: ownerB}}

	var created *domain.Order
	repo := &stubOrdersRepo{createFn: func(_ context.Context, o *domain.Order) error {
		created = o
		return nil
	}}

	in := order.CheckoutInput{
		UserID:        uuid.New(),
		PaymentMethod: domain.PaymentCOD,
		Address:       validAddress(),
		Items: []order.CheckoutItem{
			{ItemID: uuid.New(), Name: "pad thai", Price: price("9.50"), Quantity: 2, Shop: order.ShopRef{ID: shopA}},
			{ItemID: uuid.New(), Name: "lemonade", Price: price("2.25"), Quantity: 1, Shop: order.ShopRef{ID: shopB}},
			{ItemID: uuid.New(), Name: "spring rolls", Price: price("4.00"), Quantity: 3, Shop: order.ShopRef{ID: shopA}},
		},
	}

	got, err := newService(repo, shops).Checkout(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, created, got)

	require.Len(t, got.ShopOrders, 2)

	// first-seen order: shop A then shop B
	first, second := got.ShopOrders[0], got.ShopOrders[1]
	require.Equal(t, shopA, first.ShopID)
	require.Equal(t, ownerA, first.OwnerID)
	require.Len(t, first.Items, 2)
	require.True(t, first.Subtotal.Equal(price("31.00")), "got %s", first.Subtotal)

	require.Equal(t, shopB, second.ShopID)
	require.Len(t, second.Items, 1)
	require.True(t, second.Subtotal.Equal(price("2.25")))

	require.True(t, got.TotalAmount.Equal(price("33.25")))
	for _, so := range got.ShopOrders {
		require.Equal(t, domain.StatusPending, so.Status)
		require.Equal(t, got.ID, so.OrderID)
	}
}

func TestCheckout_ClientTotalStoredAsSent(t *testing.T) {
	t.Parallel()

	shopID, ownerID := uuid.New(), uuid.New()
	shops := &stubShops{owners: map[uuid.UUID]uuid.UUID{shopID: ownerID}}
	repo := &stubOrdersRepo{}

	in := order.CheckoutInput{
		UserID:        uuid.New(),
		PaymentMethod: domain.PaymentOnline,
		Address:       validAddress(),
		TotalAmount:   price("15.99"), // includes an upstream delivery fee
		Items: []order.CheckoutItem{
			{ItemID: uuid.New(), Name: "burger", Price: price("11.00"), Quantity: 1, Shop: order.ShopRef{ID: shopID}},
		},
	}

	got, err := newService(repo, shops).Checkout(context.Background(), in)
	require.NoError(t, err)
	require.True(t, got.TotalAmount.Equal(price("15.99")))
	require.True(t, got.ShopOrders[0].Subtotal.Equal(price("11.00")))
}

func TestCheckout_InlineShopObjectSyncsDirectory(t *testing.T) {
	t.Parallel()

	shopID, ownerID := uuid.New(), uuid.New()
	shops := &stubShops{owners: map[uuid.UUID]uuid.UUID{}}
	repo := &stubOrdersRepo{}

	in := order.CheckoutInput{
		UserID:        uuid.New(),
		PaymentMethod: domain.PaymentCOD,
		Address:       validAddress(),
		Items: []order.CheckoutItem{
			{
				ItemID: uuid.New(), Name: "ramen", Price: price("12.00"), Quantity: 1,
				Shop: order.ShopRef{
					ID:   shopID,
					Info: &order.ShopInfo{ID: shopID, OwnerID: ownerID, Name: "Noodle Bar"},
				},
			},
		},
	}

	got, err := newService(repo, shops).Checkout(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, ownerID, got.ShopOrders[0].OwnerID)
	require.Equal(t, []uuid.UUID{shopID}, shops.synced)
}

func TestCheckout_UnknownBareShopIsInvalid(t *testing.T) {
	t.Parallel()

	shops := &stubShops{owners: map[uuid.UUID]uuid.UUID{}}
	repo := &stubOrdersRepo{}

	in := order.CheckoutInput{
		UserID:        uuid.New(),
		PaymentMethod: domain.PaymentCOD,
		Address:       validAddress(),
		Items: []order.CheckoutItem{
			{ItemID: uuid.New(), Name: "pizza", Price: price("8.00"), Quantity: 1, Shop: order.ShopRef{ID: uuid.New()}},
		},
	}

	_, err := newService(repo, shops).Checkout(context.Background(), in)
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestCheckout_Validation(t *testing.T) {
	t.Parallel()

	shopID, ownerID := uuid.New(), uuid.New()

	valid := func() order.CheckoutInput {
		return order.CheckoutInput{
			UserID:        uuid.New(),
			PaymentMethod: domain.PaymentCOD,
			Address:       validAddress(),
			Items: []order.CheckoutItem{
				{ItemID: uuid.New(), Name: "salad", Price: price("6.50"), Quantity: 1, Shop: order.ShopRef{ID: shopID}},
			},
		}
	}

	cases := []struct {
		name   string
		mutate func(*order.CheckoutInput)
	}{
		{"missing user", func(in *order.CheckoutInput) { in.UserID = uuid.Nil }},
		{"bad payment method", func(in *order.CheckoutInput) { in.PaymentMethod = "barter" }},
		{"empty cart", func(in *order.CheckoutInput) { in.Items = nil }},
		{"latitude out of range", func(in *order.CheckoutInput) { in.Address.Lat = 123.0 }},
		{"zero quantity", func(in *order.CheckoutInput) { in.Items[0].Quantity = 0 }},
		{"negative price", func(in *order.CheckoutInput) { in.Items[0].Price = price("-1.00") }},
		{"unnamed item", func(in *order.CheckoutInput) { in.Items[0].Name = "" }},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			shops := &stubShops{owners: map[uuid.UUID]uuid.UUID{shopID: ownerID}}
			in := valid()
			tc.mutate(&in)

			_, err := newService(&stubOrdersRepo{}, shops).Checkout(context.Background(), in)
			require.ErrorIs(t, err, apperr.ErrInvalid)
		})
	}
}

func TestGetByID_NotFound(t *testing.T) {
	t.Parallel()

	svc := newService(&stubOrdersRepo{}, &stubShops{})

	_, err := svc.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestGetByID_ReturnsAggregate(t *testing.T) {
	t.Parallel()

	want := &domain.Order{ID: uuid.New()}
	repo := &stubOrdersRepo{getFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
		require.Equal(t, want.ID, id)
		return want, nil
	}}

	got, err := newService(repo, &stubShops{}).GetByID(context.Background(), want.ID)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

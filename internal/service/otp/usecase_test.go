package otp_test

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
	"quickbites-dispatch/internal/service/otp"
)

type stubTx struct {
	dispatchtx.Repository

	getShopOrderFn  func(context.Context, uuid.UUID) (*domain.ShopOrder, error)
	getOrderFn      func(context.Context, uuid.UUID) (*domain.Order, error)
	setOTPFn        func(context.Context, uuid.UUID, string, time.Time) error
	markDeliveredFn func(context.Context, uuid.UUID, time.Time) error
	completeFn      func(context.Context, uuid.UUID, time.Time) error
}

func (s *stubTx) GetShopOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.ShopOrder, error) {
	if s.getShopOrderFn == nil {
		return nil, nil
	}
	return s.getShopOrderFn(ctx, id)
}
func (s *stubTx) GetOrderHeader(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if s.getOrderFn == nil {
		return &domain.Order{ID: id, UserID: uuid.New()}, nil
	}
	return s.getOrderFn(ctx, id)
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
func (s *stubTx) CompleteAssignment(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.completeFn == nil {
		return nil
	}
	return s.completeFn(ctx, id, at)
}

type stubRunner struct {
	tx *stubTx
}

func (s *stubRunner) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error {
	return fn(s.tx)
}

type recordingNotifier struct {
	notices []notify.OTPNotice
	users   []uuid.UUID
}

func (r *recordingNotifier) CustomerOTP(_ context.Context, userID uuid.UUID, n notify.OTPNotice) error {
	r.users = append(r.users, userID)
	r.notices = append(r.notices, n)
	return nil
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func newService(tx *stubTx, n *recordingNotifier) *otp.Service {
	return otp.NewService(&stubRunner{tx: tx}, n, nil, 3*time.Second, logx.Nop())
}

func outForDelivery(courier uuid.UUID) *domain.ShopOrder {
	assignment := uuid.New()
	return &domain.ShopOrder{
		ID:                uuid.New(),
		OrderID:           uuid.New(),
		OwnerID:           uuid.New(),
		Status:            domain.StatusOutForDelivery,
		AssignedCourierID: &courier,
		AssignmentID:      &assignment,
	}
}

func TestGenerate_IssuesCodeWithTTL(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	customer := uuid.New()
	so := outForDelivery(courier)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var storedCode string
	var storedExpiry time.Time
	tx := &stubTx{
		getShopOrderFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) { return so, nil },
		getOrderFn: func(_ context.Context, id uuid.UUID) (*domain.Order, error) {
			return &domain.Order{ID: id, UserID: customer}, nil
		},
		setOTPFn: func(_ context.Context, _ uuid.UUID, code string, exp time.Time) error {
			storedCode, storedExpiry = code, exp
			return nil
		},
	}
	notif := &recordingNotifier{}

	svc := newService(tx, notif).
		WithClock(fixedClock(now)).
		WithCodeSource(func() (string, error) { return "0042", nil })

	res, err := svc.Generate(context.Background(), so.ID, courier)
	require.NoError(t, err)
	require.Equal(t, now.Add(60*time.Second), res.ExpiresAt)
	require.Equal(t, "0042", storedCode)
	require.Equal(t, res.ExpiresAt, storedExpiry)

	require.Equal(t, []uuid.UUID{customer}, notif.users)
	require.Len(t, notif.notices, 1)
	require.Equal(t, "0042", notif.notices[0].Code)
}

func TestGenerate_RegenerationOverwrites(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	so := outForDelivery(courier)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var codes []string
	tx := &stubTx{
		getShopOrderFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) { return so, nil },
		setOTPFn: func(_ context.Context, _ uuid.UUID, code string, _ time.Time) error {
			codes = append(codes, code)
			return nil
		},
	}

	next := []string{"1111", "2222"}
	svc := newService(tx, &recordingNotifier{}).
		WithClock(fixedClock(base)).
		WithCodeSource(func() (string, error) {
			c := next[0]
			next = next[1:]
			return c, nil
		})

	_, err := svc.Generate(context.Background(), so.ID, courier)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), so.ID, courier)
	require.NoError(t, err)
	require.Equal(t, []string{"1111", "2222"}, codes)
}

func TestGenerate_Guards(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	stranger := uuid.New()

	cases := []struct {
		name    string
		actor   uuid.UUID
		shopFn  func(context.Context, uuid.UUID) (*domain.ShopOrder, error)
		wantErr error
	}{
		{
			name:  "missing shop order",
			actor: courier,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				return nil, nil
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name:  "no courier assigned yet",
			actor: courier,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				so := outForDelivery(courier)
				so.AssignedCourierID = nil
				return so, nil
			},
			wantErr: apperr.ErrNotAuthorized,
		},
		{
			name:  "actor is not the assigned courier",
			actor: stranger,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				return outForDelivery(courier), nil
			},
			wantErr: apperr.ErrNotAuthorized,
		},
		{
			name:  "not out for delivery",
			actor: courier,
			shopFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
				so := outForDelivery(courier)
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
			svc := newService(tx, &recordingNotifier{})

			_, err := svc.Generate(context.Background(), uuid.New(), tc.actor)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestVerify_ConfirmsDelivery(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	so := outForDelivery(courier)
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	code := "7788"
	expires := issued.Add(60 * time.Second)
	so.OTPCode = &code
	so.OTPExpiresAt = &expires

	var deliveredAt, completedAt time.Time
	var completedID uuid.UUID
	tx := &stubTx{
		getShopOrderFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) { return so, nil },
		markDeliveredFn: func(_ context.Context, _ uuid.UUID, at time.Time) error {
			deliveredAt = at
			return nil
		},
		completeFn: func(_ context.Context, id uuid.UUID, at time.Time) error {
			completedID, completedAt = id, at
			return nil
		},
	}

	// 59s after issuance, still inside the window
	svc := newService(tx, &recordingNotifier{}).WithClock(fixedClock(issued.Add(59 * time.Second)))

	res, err := svc.Verify(context.Background(), so.ID, courier, "7788")
	require.NoError(t, err)
	require.Equal(t, so.ID, res.ShopOrderID)
	require.Equal(t, issued.Add(59*time.Second), res.DeliveredAt)
	require.Equal(t, res.DeliveredAt, deliveredAt)
	require.Equal(t, *so.AssignmentID, completedID)
	require.Equal(t, res.DeliveredAt, completedAt)
}

func TestVerify_Rejections(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	withCode := func(code string) *domain.ShopOrder {
		so := outForDelivery(courier)
		exp := issued.Add(60 * time.Second)
		so.OTPCode = &code
		so.OTPExpiresAt = &exp
		return so
	}

	cases := []struct {
		name      string
		so        *domain.ShopOrder
		at        time.Time
		submitted string
	}{
		{
			name:      "wrong code",
			so:        withCode("1234"),
			at:        issued.Add(time.Second),
			submitted: "4321",
		},
		{
			name:      "no code issued",
			so:        outForDelivery(courier),
			at:        issued,
			submitted: "1234",
		},
		{
			name:      "exactly at expiry",
			so:        withCode("1234"),
			at:        issued.Add(60 * time.Second),
			submitted: "1234",
		},
		{
			name:      "after expiry",
			so:        withCode("1234"),
			at:        issued.Add(61 * time.Second),
			submitted: "1234",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			delivered := false
			tx := &stubTx{
				getShopOrderFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) {
					return tc.so, nil
				},
				markDeliveredFn: func(context.Context, uuid.UUID, time.Time) error {
					delivered = true
					return nil
				},
			}
			svc := newService(tx, &recordingNotifier{}).WithClock(fixedClock(tc.at))

			_, err := svc.Verify(context.Background(), tc.so.ID, courier, tc.submitted)
			require.ErrorIs(t, err, apperr.ErrInvalidOrExpiredOTP)
			require.False(t, delivered)
		})
	}
}

func TestVerify_OnlyAssignedCourier(t *testing.T) {
	t.Parallel()

	courier := uuid.New()
	so := outForDelivery(courier)
	code := "1234"
	exp := time.Now().Add(time.Minute)
	so.OTPCode = &code
	so.OTPExpiresAt = &exp

	tx := &stubTx{
		getShopOrderFn: func(context.Context, uuid.UUID) (*domain.ShopOrder, error) { return so, nil },
	}
	svc := newService(tx, &recordingNotifier{})

	_, err := svc.Verify(context.Background(), so.ID, uuid.New(), "1234")
	require.ErrorIs(t, err, apperr.ErrNotAuthorized)
}

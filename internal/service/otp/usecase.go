package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/logx"
	"quickbites-dispatch/internal/metrics"
	"quickbites-dispatch/internal/notify"
	"quickbites-dispatch/internal/ports/dispatchtx"
)

// codeTTL is the fixed lifetime of a delivery code. Expiry is checked lazily
// at verify time; there is no background sweep.
const codeTTL = 60 * time.Second

const codeSpace = 10000 // 4-digit codes, zero-padded

// GenerateResult reports when the freshly issued code expires. The code
// itself travels to the customer only, through the notifier.
type GenerateResult struct {
	ShopOrderID uuid.UUID
	ExpiresAt   time.Time
}

// VerifyResult reports the terminal delivery transition.
type VerifyResult struct {
	ShopOrderID uuid.UUID
	DeliveredAt time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) error
}

type customerNotifier interface {
	CustomerOTP(ctx context.Context, userID uuid.UUID, n notify.OTPNotice) error
}

// Service gates the terminal "delivered" transition behind a short numeric
// code the customer reads to the courier in person.
type Service struct {
	repo             txRunner
	notifier         customerNotifier
	stats            *metrics.Dispatch
	logger           logx.Logger
	operationTimeout time.Duration
	now              func() time.Time
	newCode          func() (string, error)
}

// NewService creates an OTP Service.
func NewService(repo txRunner, n customerNotifier, stats *metrics.Dispatch, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             repo,
		notifier:         n,
		stats:            stats,
		logger:           logger,
		operationTimeout: timeout,
		now:              func() time.Time { return time.Now().UTC() },
		newCode:          randomCode,
	}
}

// WithClock overrides the time source. Test seam.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// WithCodeSource overrides code generation. Test seam.
func (s *Service) WithCodeSource(fn func() (string, error)) *Service {
	if fn != nil {
		s.newCode = fn
	}
	return s
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Generate issues a fresh code for the shop order and notifies the customer.
// Only the assigned courier may request a code, and only while the shop order
// is out for delivery. Regeneration overwrites any earlier code.
func (s *Service) Generate(ctx context.Context, shopOrderID, actorCourierID uuid.UUID) (GenerateResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		res    GenerateResult
		userID uuid.UUID
		notice notify.OTPNotice
	)

	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		so, err := tx.GetShopOrderForUpdate(ctx, shopOrderID)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.ErrNotFound
		}
		if so.AssignedCourierID == nil || *so.AssignedCourierID != actorCourierID {
			return apperr.ErrNotAuthorized
		}
		if so.Status != domain.StatusOutForDelivery {
			return apperr.ErrInvalidStatus
		}

		ord, err := tx.GetOrderHeader(ctx, so.OrderID)
		if err != nil {
			return err
		}
		if ord == nil {
			return apperr.ErrNotFound
		}

		code, err := s.newCode()
		if err != nil {
			return err
		}
		expiresAt := s.now().Add(codeTTL)
		if err := tx.SetShopOrderOTP(ctx, shopOrderID, code, expiresAt); err != nil {
			return err
		}

		userID = ord.UserID
		res = GenerateResult{ShopOrderID: shopOrderID, ExpiresAt: expiresAt}
		notice = notify.OTPNotice{ShopOrderID: shopOrderID, Code: code, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	if err := s.notifier.CustomerOTP(ctx, userID, notice); err != nil {
		s.logger.Warn("customer otp notification failed",
			logx.String("shop_order_id", shopOrderID.String()),
			logx.Any("err", err),
		)
	}
	s.logger.Info("delivery otp generated",
		logx.String("event", "otp_generated"),
		logx.String("shop_order_id", shopOrderID.String()),
		logx.Time("expires_at", res.ExpiresAt),
	)
	return res, nil
}

// Verify checks the submitted code and, on success, moves the shop order to
// its terminal "delivered" state and completes the assignment. A wrong code
// and an expired code are indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, shopOrderID, actorCourierID uuid.UUID, submitted string) (VerifyResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var res VerifyResult

	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		so, err := tx.GetShopOrderForUpdate(ctx, shopOrderID)
		if err != nil {
			return err
		}
		if so == nil {
			return apperr.ErrNotFound
		}
		if so.AssignedCourierID == nil || *so.AssignedCourierID != actorCourierID {
			return apperr.ErrNotAuthorized
		}

		now := s.now()
		if so.OTPCode == nil || so.OTPExpiresAt == nil ||
			*so.OTPCode != submitted || !now.Before(*so.OTPExpiresAt) {
			return apperr.ErrInvalidOrExpiredOTP
		}

		if err := tx.MarkShopOrderDelivered(ctx, shopOrderID, now); err != nil {
			return err
		}
		if so.AssignmentID != nil {
			if err := tx.CompleteAssignment(ctx, *so.AssignmentID, now); err != nil {
				return err
			}
		}
		res = VerifyResult{ShopOrderID: shopOrderID, DeliveredAt: now}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}

	if s.stats != nil {
		s.stats.Deliveries.Inc()
	}
	s.logger.Info("delivery confirmed",
		logx.String("event", "delivery_confirmed"),
		logx.String("shop_order_id", shopOrderID.String()),
		logx.Time("delivered_at", res.DeliveredAt),
	)
	return res, nil
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("otp: random code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

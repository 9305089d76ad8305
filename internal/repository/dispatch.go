package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickbites-dispatch/internal/apperr"
	"quickbites-dispatch/internal/domain"
	"quickbites-dispatch/internal/ports/dispatchtx"
)

// DispatchRepo is the persistent side of the dispatch workflow: shop-order
// rows and the assignment ledger.
type DispatchRepo struct {
	db *pgxpool.Pool
}

// NewDispatchRepo creates a new DispatchRepo.
func NewDispatchRepo(db *pgxpool.Pool) *DispatchRepo {
	return &DispatchRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *DispatchRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetAssignment - returns an assignment by id outside a transaction.
func (r *DispatchRepo) GetAssignment(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	return scanAssignment(r.db.QueryRow(ctx, assignmentSelect+` WHERE id=$1`, id))
}

// GetActiveByCourier returns the courier's non-terminal assignment, or nil
// when the courier is free.
func (r *DispatchRepo) GetActiveByCourier(ctx context.Context, courierID uuid.UUID) (*domain.Assignment, error) {
	return scanAssignment(r.db.QueryRow(ctx,
		assignmentSelect+` WHERE assigned_to=$1 AND status <> $2`,
		courierID, string(domain.AssignmentCompleted),
	))
}

// IsBusy reports whether the courier holds a non-terminal assignment. A
// courier who is merely broadcasted-to is not busy; busy means assigned_to
// matches and the episode has not completed.
func (r *DispatchRepo) IsBusy(ctx context.Context, courierID uuid.UUID) (bool, error) {
	var busy bool
	err := r.db.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM assignments
            WHERE assigned_to = $1 AND status <> $2
        )
    `, courierID, string(domain.AssignmentCompleted)).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("is busy %s: %w", courierID, err)
	}
	return busy, nil
}

// TxRepo is the transaction-scoped repository.
type TxRepo struct {
	tx pgx.Tx
}

const shopOrderSelect = `
        SELECT id, order_id, shop_id, owner_id, subtotal, status,
               assigned_courier_id, assignment_id, otp_code, otp_expires_at,
               assigned_at, delivered_at
        FROM shop_orders`

const assignmentSelect = `
        SELECT id, order_id, shop_id, shop_order_id, broadcast_to, status,
               assigned_to, created_at, accepted_at, completed_at
        FROM assignments`

// GetShopOrderForUpdate locks and returns a shop-order row without its items.
func (r *TxRepo) GetShopOrderForUpdate(ctx context.Context, id uuid.UUID) (*domain.ShopOrder, error) {
	so, err := scanShopOrder(r.tx.QueryRow(ctx, shopOrderSelect+` WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get shop order %s for update: %w", id, err)
	}
	return so, nil
}

// GetOrderHeader returns the order row without shop orders or items.
func (r *TxRepo) GetOrderHeader(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.tx.QueryRow(ctx, `
        SELECT id, user_id, payment_method, address_text, address_lat, address_lng,
               total_amount, ordered_at
        FROM orders WHERE id=$1
    `, id).Scan(&o.ID, &o.UserID, &o.PaymentMethod, &o.Address.Text,
		&o.Address.Lat, &o.Address.Lng, &o.TotalAmount, &o.OrderedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order header %s: %w", id, err)
	}
	return &o, nil
}

// UpdateShopOrderStatus - writes the new status.
func (r *TxRepo) UpdateShopOrderStatus(ctx context.Context, id uuid.UUID, status domain.ShopOrderStatus) error {
	ct, err := r.tx.Exec(ctx,
		`UPDATE shop_orders SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update shop order status %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shop order %s not found", id)
	}
	return nil
}

// SetShopOrderAssignment stores the live assignment reference.
func (r *TxRepo) SetShopOrderAssignment(ctx context.Context, id, assignmentID uuid.UUID) error {
	ct, err := r.tx.Exec(ctx,
		`UPDATE shop_orders SET assignment_id=$2 WHERE id=$1`, id, assignmentID)
	if err != nil {
		return fmt.Errorf("set shop order assignment %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shop order %s not found", id)
	}
	return nil
}

// SetShopOrderCourier records the accepted courier and the acceptance time.
func (r *TxRepo) SetShopOrderCourier(ctx context.Context, id, courierID uuid.UUID, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE shop_orders SET assigned_courier_id=$2, assigned_at=$3 WHERE id=$1
    `, id, courierID, at)
	if err != nil {
		return fmt.Errorf("set shop order courier %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shop order %s not found", id)
	}
	return nil
}

// SetShopOrderOTP stores the delivery code and its expiry, overwriting any
// previous code.
func (r *TxRepo) SetShopOrderOTP(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE shop_orders SET otp_code=$2, otp_expires_at=$3 WHERE id=$1
    `, id, code, expiresAt)
	if err != nil {
		return fmt.Errorf("set shop order otp %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shop order %s not found", id)
	}
	return nil
}

// MarkShopOrderDelivered clears the code fields and writes the terminal status.
func (r *TxRepo) MarkShopOrderDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE shop_orders
        SET status=$2, otp_code=NULL, otp_expires_at=NULL, delivered_at=$3
        WHERE id=$1
    `, id, string(domain.StatusDelivered), at)
	if err != nil {
		return fmt.Errorf("mark shop order delivered %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shop order %s not found", id)
	}
	return nil
}

// InsertAssignment persists a new broadcast. The partial unique index on
// shop_order_id for non-completed rows turns a second live assignment into a
// duplicate error.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	if len(a.BroadcastTo) == 0 {
		return apperr.ErrNoCandidates
	}
	_, err := r.tx.Exec(ctx, `
        INSERT INTO assignments
            (id, order_id, shop_id, shop_order_id, broadcast_to, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, a.ID, a.OrderID, a.ShopID, a.ShopOrderID, a.BroadcastTo, string(a.Status), a.CreatedAt)
	if err != nil {
		if IsDuplicate(err) {
			return apperr.ErrAlreadyTaken
		}
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// GetAssignmentForUpdate locks and returns an assignment row.
func (r *TxRepo) GetAssignmentForUpdate(ctx context.Context, id uuid.UUID) (*domain.Assignment, error) {
	a, err := scanAssignment(r.tx.QueryRow(ctx, assignmentSelect+` WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, fmt.Errorf("get assignment %s for update: %w", id, err)
	}
	return a, nil
}

// GetLiveAssignmentByShopOrder returns the non-terminal assignment for a shop
// order, or nil.
func (r *TxRepo) GetLiveAssignmentByShopOrder(ctx context.Context, shopOrderID uuid.UUID) (*domain.Assignment, error) {
	a, err := scanAssignment(r.tx.QueryRow(ctx,
		assignmentSelect+` WHERE shop_order_id=$1 AND status <> $2`,
		shopOrderID, string(domain.AssignmentCompleted),
	))
	if err != nil {
		return nil, fmt.Errorf("get live assignment for shop order %s: %w", shopOrderID, err)
	}
	return a, nil
}

// BusyCouriers returns the subset of courierIDs holding a non-terminal
// assignment.
func (r *TxRepo) BusyCouriers(ctx context.Context, courierIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(courierIDs) == 0 {
		return nil, nil
	}
	rows, err := r.tx.Query(ctx, `
        SELECT DISTINCT assigned_to FROM assignments
        WHERE assigned_to = ANY($1) AND status <> $2
    `, courierIDs, string(domain.AssignmentCompleted))
	if err != nil {
		return nil, fmt.Errorf("busy couriers: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// CourierIsBusy is the tx-scoped busy check used inside accept.
func (r *TxRepo) CourierIsBusy(ctx context.Context, courierID uuid.UUID) (bool, error) {
	var busy bool
	err := r.tx.QueryRow(ctx, `
        SELECT EXISTS(
            SELECT 1 FROM assignments
            WHERE assigned_to = $1 AND status <> $2
        )
    `, courierID, string(domain.AssignmentCompleted)).Scan(&busy)
	if err != nil {
		return false, fmt.Errorf("courier is busy %s: %w", courierID, err)
	}
	return busy, nil
}

// MarkAssignmentAssigned commits the broadcasted→assigned transition. The
// status predicate makes it a compare-and-swap; false means another courier
// got there first.
func (r *TxRepo) MarkAssignmentAssigned(ctx context.Context, id, courierID uuid.UUID, at time.Time) (bool, error) {
	ct, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status=$2, assigned_to=$3, accepted_at=$4
        WHERE id=$1 AND status=$5
    `, id, string(domain.AssignmentAssigned), courierID, at, string(domain.AssignmentBroadcasted))
	if err != nil {
		return false, fmt.Errorf("mark assignment assigned %s: %w", id, err)
	}
	return ct.RowsAffected() > 0, nil
}

// CompleteAssignment writes the terminal state. Completing an already
// completed assignment is a no-op.
func (r *TxRepo) CompleteAssignment(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE assignments
        SET status=$2, completed_at=$3
        WHERE id=$1 AND status <> $2
    `, id, string(domain.AssignmentCompleted), at)
	if err != nil {
		return fmt.Errorf("complete assignment %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShopOrder(row rowScanner) (*domain.ShopOrder, error) {
	var so domain.ShopOrder
	err := row.Scan(&so.ID, &so.OrderID, &so.ShopID, &so.OwnerID, &so.Subtotal,
		&so.Status, &so.AssignedCourierID, &so.AssignmentID, &so.OTPCode,
		&so.OTPExpiresAt, &so.AssignedAt, &so.DeliveredAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &so, nil
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var a domain.Assignment
	var status string
	err := row.Scan(&a.ID, &a.OrderID, &a.ShopID, &a.ShopOrderID, &a.BroadcastTo,
		&status, &a.AssignedTo, &a.CreatedAt, &a.AcceptedAt, &a.CompletedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	a.Status = domain.AssignmentStatus(status)
	return &a, nil
}

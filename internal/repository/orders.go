package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickbites-dispatch/internal/domain"
)

// OrderRepo persists the Order aggregate: the order row, its shop-order rows
// and the captured line items.
type OrderRepo struct {
	db *pgxpool.Pool
}

// NewOrderRepo creates a new OrderRepo.
func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create inserts the whole aggregate atomically.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
        INSERT INTO orders
            (id, user_id, payment_method, address_text, address_lat, address_lng,
             total_amount, ordered_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, o.ID, o.UserID, string(o.PaymentMethod), o.Address.Text,
		o.Address.Lat, o.Address.Lng, o.TotalAmount, o.OrderedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.ShopOrders {
		so := &o.ShopOrders[i]
		_, err = tx.Exec(ctx, `
            INSERT INTO shop_orders
                (id, order_id, shop_id, owner_id, subtotal, status)
            VALUES ($1, $2, $3, $4, $5, $6)
        `, so.ID, o.ID, so.ShopID, so.OwnerID, so.Subtotal, string(so.Status))
		if err != nil {
			return fmt.Errorf("insert shop order: %w", err)
		}
		for _, it := range so.Items {
			_, err = tx.Exec(ctx, `
                INSERT INTO order_items (shop_order_id, item_id, name, price, quantity)
                VALUES ($1, $2, $3, $4, $5)
            `, so.ID, it.ItemID, it.Name, it.Price, it.Quantity)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID assembles the full aggregate. Returns nil when the order does not
// exist.
func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.db.QueryRow(ctx, `
        SELECT id, user_id, payment_method, address_text, address_lat, address_lng,
               total_amount, ordered_at
        FROM orders WHERE id=$1
    `, id).Scan(&o.ID, &o.UserID, &o.PaymentMethod, &o.Address.Text,
		&o.Address.Lat, &o.Address.Lng, &o.TotalAmount, &o.OrderedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	rows, err := r.db.Query(ctx, shopOrderSelect+` WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get shop orders for %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		so, err := scanShopOrder(rows)
		if err != nil {
			return nil, err
		}
		o.ShopOrders = append(o.ShopOrders, *so)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range o.ShopOrders {
		items, err := r.itemsFor(ctx, o.ShopOrders[i].ID)
		if err != nil {
			return nil, err
		}
		o.ShopOrders[i].Items = items
	}
	return &o, nil
}

// GetShopOrder returns one shop-order row with its items, or nil.
func (r *OrderRepo) GetShopOrder(ctx context.Context, id uuid.UUID) (*domain.ShopOrder, error) {
	so, err := scanShopOrder(r.db.QueryRow(ctx, shopOrderSelect+` WHERE id=$1`, id))
	if err != nil {
		return nil, fmt.Errorf("get shop order %s: %w", id, err)
	}
	if so == nil {
		return nil, nil
	}
	items, err := r.itemsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	so.Items = items
	return so, nil
}

func (r *OrderRepo) itemsFor(ctx context.Context, shopOrderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
        SELECT item_id, name, price, quantity
        FROM order_items WHERE shop_order_id=$1 ORDER BY id
    `, shopOrderID)
	if err != nil {
		return nil, fmt.Errorf("get items for shop order %s: %w", shopOrderID, err)
	}
	defer rows.Close()

	var out []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

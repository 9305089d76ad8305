package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"quickbites-dispatch/internal/apperr"
)

// ShopDirectory resolves shop ids to their owners. Shop CRUD lives elsewhere;
// this table is a synced projection, refreshed whenever a checkout carries
// the full shop object.
type ShopDirectory struct {
	db *pgxpool.Pool
}

// NewShopDirectory creates a new ShopDirectory.
func NewShopDirectory(db *pgxpool.Pool) *ShopDirectory {
	return &ShopDirectory{db: db}
}

// ResolveOwner returns the owner of a shop, or apperr.ErrNotFound when the
// shop is unknown to the projection.
func (d *ShopDirectory) ResolveOwner(ctx context.Context, shopID uuid.UUID) (uuid.UUID, error) {
	var ownerID uuid.UUID
	err := d.db.QueryRow(ctx,
		`SELECT owner_id FROM shops WHERE id=$1`, shopID,
	).Scan(&ownerID)
	if err != nil {
		if IsNotFound(err) {
			return uuid.Nil, apperr.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("resolve shop owner %s: %w", shopID, err)
	}
	return ownerID, nil
}

// SyncShop refreshes the projection from an authoritative shop object.
func (d *ShopDirectory) SyncShop(ctx context.Context, shopID, ownerID uuid.UUID, name string) error {
	_, err := d.db.Exec(ctx, `
        INSERT INTO shops (id, owner_id, name)
        VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET owner_id=EXCLUDED.owner_id, name=EXCLUDED.name
    `, shopID, ownerID, name)
	if err != nil {
		return fmt.Errorf("sync shop %s: %w", shopID, err)
	}
	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment - one broadcast-to-acceptance episode for a single ShopOrder.
// The candidate set is fixed at broadcast time. At most one Assignment per
// ShopOrder may be non-terminal at a time.
type Assignment struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ShopID      uuid.UUID
	ShopOrderID uuid.UUID
	BroadcastTo []uuid.UUID
	Status      AssignmentStatus
	AssignedTo  *uuid.UUID
	CreatedAt   time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// BroadcastedTo reports whether the courier is in the fixed candidate set.
func (a *Assignment) BroadcastedTo(courierID uuid.UUID) bool {
	for _, id := range a.BroadcastTo {
		if id == courierID {
			return true
		}
	}
	return false
}

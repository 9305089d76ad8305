package domain

type (
	// ShopOrderStatus represents the fulfillment status of one shop's part of an order.
	ShopOrderStatus string
	// AssignmentStatus represents the state of a broadcast-to-acceptance episode.
	AssignmentStatus string
	// PaymentMethod represents how an order is paid.
	PaymentMethod string
)

// List of possible shop-order statuses
const (
	StatusPending        ShopOrderStatus = "pending"
	StatusPreparing      ShopOrderStatus = "preparing"
	StatusOutForDelivery ShopOrderStatus = "out for delivery"
	StatusDelivered      ShopOrderStatus = "delivered"
	StatusCancelled      ShopOrderStatus = "cancelled"
)

// List of possible assignment statuses
const (
	AssignmentBroadcasted AssignmentStatus = "broadcasted"
	AssignmentAssigned    AssignmentStatus = "assigned"
	AssignmentCompleted   AssignmentStatus = "completed"
)

// List of possible payment methods
const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

var allowedStatuses = [...]ShopOrderStatus{
	StatusPending, StatusPreparing, StatusOutForDelivery, StatusDelivered, StatusCancelled,
}

// Valid checks if the ShopOrderStatus is one of the fixed allowed set.
func (s ShopOrderStatus) Valid() bool {
	for _, v := range allowedStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions may leave this status.
func (s ShopOrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// forward ranks along pending → preparing → out for delivery → delivered.
var statusRank = map[ShopOrderStatus]int{
	StatusPending:        0,
	StatusPreparing:      1,
	StatusOutForDelivery: 2,
	StatusDelivered:      3,
}

// CanTransitionTo reports whether an owner-driven transition from s to next is
// allowed. Transitions are monotonic forward along the status chain;
// "cancelled" is reachable from "pending" only, and "delivered" is never
// reachable here (it is entered through OTP verification, not a status write).
// Re-asserting "out for delivery" is allowed so that a dispatch with zero
// available couriers can be retried.
func (s ShopOrderStatus) CanTransitionTo(next ShopOrderStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next == StatusDelivered {
		return false
	}
	if next == StatusCancelled {
		return s == StatusPending
	}
	if next == StatusOutForDelivery && s == StatusOutForDelivery {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Valid checks if the PaymentMethod is valid.
func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentOnline
}

// Terminal reports whether the assignment reached its final state.
func (a AssignmentStatus) Terminal() bool {
	return a == AssignmentCompleted
}

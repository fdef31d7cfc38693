package model

import (
	"fmt"
	"time"
)

// OrderStatus is the closed set of order states. The lifecycle is
// one-directional: open orders become paid, paid orders may be
// refunded, refunded is terminal.
type OrderStatus string

const (
	OrderOpen     OrderStatus = "OPEN"
	OrderPaid     OrderStatus = "PAID"
	OrderRefunded OrderStatus = "REFUNDED"
)

// OrderTransitionError reports a status change that the lifecycle does
// not allow, naming both sides.
type OrderTransitionError struct {
	From, To OrderStatus
}

func (e *OrderTransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %q to %q", e.From, e.To)
}

// CanTransition reports whether an order may move from one status to
// another. Re-applying the current status is not a transition; callers
// that need idempotent marking check for equality first.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderOpen:
		return to == OrderPaid
	case OrderPaid:
		return to == OrderRefunded
	}
	return false
}

// Order is one purchase attempt for a tour, optionally tied to a
// session whose playability it gates. Reference is the uuid handed to
// the payment provider and echoed back in webhooks.
type Order struct {
	ID          uint64
	Reference   string
	TourID      uint64
	SessionID   *uint64
	Status      OrderStatus
	AmountCents uint32 // original amount before discount
	CouponCode  *string
	TotalCents  uint32  // amount after discount; what the provider charges
	ProviderID  *string // provider-side payment id, set on first webhook
	PaidAt      *time.Time
	RefundedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

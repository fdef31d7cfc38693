package model

import (
	"errors"
	"time"
)

// DiscountType selects how a coupon changes the order amount.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
	DiscountFree    DiscountType = "free"
)

// Coupon validation failures. Each cause is distinct so the checkout
// surface can tell the caller exactly why a code was rejected.
var (
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrCouponExhausted    = errors.New("coupon has no uses left")
	ErrCouponTourMismatch = errors.New("coupon not valid for this tour")
)

// Coupon is a global discount code. UsedCount moves only when an order
// backed by the coupon reaches paid status, never at preview time, so
// abandoned checkouts do not consume uses. Deactivation exhausts the
// remaining uses instead of deleting the row.
type Coupon struct {
	ID        uint64
	Code      string
	Type      DiscountType
	Value     uint32 // percent (0-100) or fixed cents; unused for free
	MaxUses   *uint32
	UsedCount uint32
	ExpiresAt *time.Time
	TourID    *uint64 // restricts the coupon to one tour when set
	CreatedAt time.Time
}

// Validate checks the coupon against a tour and the clock without
// touching the usage counter. now is passed in so callers and tests
// control time.
func (c *Coupon) Validate(tourID uint64, now time.Time) error {
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrCouponExpired
	}
	if c.MaxUses != nil && c.UsedCount >= *c.MaxUses {
		return ErrCouponExhausted
	}
	if c.TourID != nil && *c.TourID != tourID {
		return ErrCouponTourMismatch
	}
	return nil
}

// Discount applies the coupon arithmetic to a base amount in cents.
// percent rounds to the nearest cent; fixed floors at zero.
func (c *Coupon) Discount(baseCents uint32) uint32 {
	switch c.Type {
	case DiscountPercent:
		// Value is validated to 1-100 on creation; clamp anyway so a
		// row edited out of band cannot underflow into a huge total.
		if c.Value >= 100 {
			return 0
		}
		// round half up on the discounted amount
		keep := uint64(baseCents) * uint64(100-c.Value)
		return uint32((keep + 50) / 100)
	case DiscountFixed:
		if c.Value >= baseCents {
			return 0
		}
		return baseCents - c.Value
	case DiscountFree:
		return 0
	}
	return baseCents
}

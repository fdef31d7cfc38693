package model

import (
	"errors"
	"testing"
	"time"
)

func uptr(v uint32) *uint32       { return &v }
func u64ptr(v uint64) *uint64     { return &v }
func tptr(t time.Time) *time.Time { return &t }

func TestCouponDiscount(t *testing.T) {
	tests := []struct {
		name string
		c    Coupon
		base uint32
		want uint32
	}{
		{"percent 20 off 10000", Coupon{Type: DiscountPercent, Value: 20}, 10000, 8000},
		{"percent 100 off", Coupon{Type: DiscountPercent, Value: 100}, 10000, 0},
		{"percent above 100 clamps to zero", Coupon{Type: DiscountPercent, Value: 150}, 10000, 0},
		{"percent rounds to nearest cent", Coupon{Type: DiscountPercent, Value: 33}, 999, 669}, // 669.33 -> 669
		{"fixed 1500 off 10000", Coupon{Type: DiscountFixed, Value: 1500}, 10000, 8500},
		{"fixed larger than base floors at zero", Coupon{Type: DiscountFixed, Value: 12000}, 10000, 0},
		{"free", Coupon{Type: DiscountFree}, 10000, 0},
	}
	for _, tt := range tests {
		if got := tt.c.Discount(tt.base); got != tt.want {
			t.Errorf("%s: Discount(%d) = %d, want %d", tt.name, tt.base, got, tt.want)
		}
	}
}

func TestCouponValidate(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	ok := Coupon{Code: "LENTE26", Type: DiscountPercent, Value: 10}
	if err := ok.Validate(7, now); err != nil {
		t.Errorf("unrestricted coupon should validate, got %v", err)
	}

	expired := Coupon{ExpiresAt: tptr(now.Add(-time.Hour))}
	if err := expired.Validate(7, now); !errors.Is(err, ErrCouponExpired) {
		t.Errorf("expired coupon: got %v, want ErrCouponExpired", err)
	}

	exhausted := Coupon{MaxUses: uptr(5), UsedCount: 5}
	if err := exhausted.Validate(7, now); !errors.Is(err, ErrCouponExhausted) {
		t.Errorf("exhausted coupon: got %v, want ErrCouponExhausted", err)
	}

	wrongTour := Coupon{TourID: u64ptr(3)}
	if err := wrongTour.Validate(7, now); !errors.Is(err, ErrCouponTourMismatch) {
		t.Errorf("restricted coupon on other tour: got %v, want ErrCouponTourMismatch", err)
	}
	if err := wrongTour.Validate(3, now); err != nil {
		t.Errorf("restricted coupon on its own tour should validate, got %v", err)
	}

	// Validation never mutates the counter.
	c := Coupon{MaxUses: uptr(2), UsedCount: 1}
	for i := 0; i < 10; i++ {
		_ = c.Validate(7, now)
	}
	if c.UsedCount != 1 {
		t.Errorf("Validate changed UsedCount to %d", c.UsedCount)
	}
}

func TestOrderTransitions(t *testing.T) {
	if !OrderOpen.CanTransition(OrderPaid) {
		t.Error("open -> paid must be allowed")
	}
	if !OrderPaid.CanTransition(OrderRefunded) {
		t.Error("paid -> refunded must be allowed")
	}
	blocked := []struct{ from, to OrderStatus }{
		{OrderOpen, OrderRefunded},
		{OrderPaid, OrderOpen},
		{OrderRefunded, OrderPaid},
		{OrderRefunded, OrderOpen},
	}
	for _, b := range blocked {
		if b.from.CanTransition(b.to) {
			t.Errorf("%s -> %s should be blocked", b.from, b.to)
		}
	}
}

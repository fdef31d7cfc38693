package repository

import (
	"testing"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		status model.WebhookStatus
		want   bool
	}{
		{model.WebhookPending, true},
		{model.WebhookFailed, true},
		{model.WebhookProcessed, false},
		{model.WebhookDuplicate, false},
	}
	for _, tc := range cases {
		if got := retryable(tc.status); got != tc.want {
			t.Errorf("retryable(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

// ledger mirrors the claim/process cycle as the row lock serializes
// it: each delivery of one (provider, event id) observes the status
// the previous delivery committed.
type ledger struct {
	exists  bool
	status  model.WebhookStatus
	applied int
}

// deliver runs one serialized delivery and reports whether it was
// given to processing (ClaimTx's fresh contract).
func (l *ledger) deliver(processingSucceeds bool) bool {
	if l.exists && !retryable(l.status) {
		return false
	}
	l.exists = true
	if processingSucceeds {
		l.status = model.WebhookProcessed
		l.applied++
	} else {
		l.status = model.WebhookFailed
	}
	return true
}

func TestRepeatedDeliveriesApplyOnce(t *testing.T) {
	const n = 5
	l := &ledger{}

	fresh := 0
	for i := 0; i < n; i++ {
		if l.deliver(true) {
			fresh++
		}
	}
	if l.applied != 1 {
		t.Fatalf("financial effect applied %d times, want exactly 1", l.applied)
	}
	if fresh != 1 {
		t.Fatalf("%d deliveries processed, want 1 (and %d duplicates)", fresh, n-1)
	}
}

func TestFailedDeliveryStaysRetryable(t *testing.T) {
	l := &ledger{}

	if !l.deliver(false) {
		t.Fatal("first delivery was not processed")
	}
	if l.status != model.WebhookFailed {
		t.Fatalf("status after failure = %s, want FAILED", l.status)
	}
	// The retry re-enters the same pipeline and applies exactly once.
	if !l.deliver(true) {
		t.Fatal("retry of failed event was treated as duplicate")
	}
	if !retryable(model.WebhookFailed) || l.applied != 1 {
		t.Fatalf("retry applied %d times, want 1", l.applied)
	}
	// Further deliveries after success are duplicates.
	if l.deliver(true) {
		t.Fatal("delivery after success was processed again")
	}
	if l.applied != 1 {
		t.Fatalf("applied %d times after redelivery, want 1", l.applied)
	}
}

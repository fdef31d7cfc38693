package model

import "time"

// WebhookStatus tracks how far a provider event got through the
// pipeline. pending and failed events are retryable; processed and
// duplicate are final.
type WebhookStatus string

const (
	WebhookPending   WebhookStatus = "PENDING"
	WebhookProcessed WebhookStatus = "PROCESSED"
	WebhookFailed    WebhookStatus = "FAILED"
	WebhookDuplicate WebhookStatus = "DUPLICATE"
)

// WebhookEvent is the audit record of a provider-delivered payment
// event. (Provider, EventID) identifies at most one row: a redelivery
// locks that row, sees it already processed, and is answered with the
// DUPLICATE outcome without touching the order again. The raw payload
// is kept regardless of processing outcome. DeliveryCount records how
// often the provider sent the event.
type WebhookEvent struct {
	ID            uint64
	Provider      string
	EventID       string
	RawPayload    string
	Status        WebhookStatus
	Error         *string
	DeliveryCount uint32
	ProcessedAt   *time.Time
	CreatedAt     time.Time
}

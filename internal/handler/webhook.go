package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tochtwerk/gelukstocht/internal/config"
	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/queue"
	"github.com/tochtwerk/gelukstocht/internal/repository"
	"github.com/tochtwerk/gelukstocht/internal/service"
)

// Webhook event types accepted from payment providers.
const (
	eventPaymentPaid     = "payment.paid"
	eventPaymentRefunded = "payment.refunded"
)

// WebhookHandler ingests payment provider callbacks. The pipeline is
// two transactions: the first durably records the delivery (so the
// provider can be answered success and will not hammer retries), the
// second applies the order mutation under the event row's lock. A
// failure in the second leaves a retryable audit row behind; the
// admin retry endpoint re-drives the same processing path.
type WebhookHandler struct {
	Cfg      config.Config
	Events   *repository.WebhookEventRepo
	Orders   *repository.OrderRepo
	Coupons  *repository.CouponRepo
	Sessions *repository.SessionRepo
	Notifier service.NotificationSink
}

func NewWebhookHandler(cfg config.Config, events *repository.WebhookEventRepo, orders *repository.OrderRepo, coupons *repository.CouponRepo, sessions *repository.SessionRepo, notifier service.NotificationSink) *WebhookHandler {
	if notifier == nil {
		notifier = service.NopSink{}
	}
	return &WebhookHandler{Cfg: cfg, Events: events, Orders: orders, Coupons: coupons, Sessions: sessions, Notifier: notifier}
}

// webhookPayload is the provider envelope after parsing.
type webhookPayload struct {
	EventID        string `json:"event_id"`
	Type           string `json:"type"`
	OrderReference string `json:"order_reference"`
	ProviderID     string `json:"provider_payment_id"`
}

// parseWebhookPayload validates the envelope fields every event needs.
func parseWebhookPayload(raw []byte) (*webhookPayload, error) {
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}
	if p.EventID == "" {
		return nil, fmt.Errorf("payload missing event_id")
	}
	if p.Type == "" {
		return nil, fmt.Errorf("payload missing type")
	}
	if p.OrderReference == "" {
		return nil, fmt.Errorf("payload missing order_reference")
	}
	return &p, nil
}

// validSignature checks the hex HMAC-SHA256 of the body against the
// shared secret. Constant-time compare.
func validSignature(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// Receive handles POST /v1/webhooks/payments/:provider. An invalid
// signature is rejected without leaving any trace; everything after a
// valid signature is durably recorded before the provider gets its
// success answer, even when processing fails.
func (h *WebhookHandler) Receive(c echo.Context) error {
	provider := c.Param("provider")
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_body", "message": "failed to read body"})
	}
	if !validSignature(body, c.Request().Header.Get("X-Webhook-Signature"), h.Cfg.WebhookSecret) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_signature", "message": "signature verification failed"})
	}

	payload, err := parseWebhookPayload(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_payload", "message": err.Error()})
	}

	ctx := c.Request().Context()

	// First transaction: record the delivery. After this commits the
	// provider's retry loop is satisfied no matter what processing does.
	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	event, fresh, err := h.Events.ClaimTx(ctx, tx, provider, payload.EventID, string(body))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to record event"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "failed to commit transaction"})
	}
	committed = true

	if !fresh {
		return c.JSON(http.StatusOK, echo.Map{"eventId": payload.EventID, "outcome": model.WebhookDuplicate})
	}

	outcome := h.process(c, event)
	return c.JSON(http.StatusOK, echo.Map{"eventId": payload.EventID, "outcome": outcome})
}

// process runs the side-effect transaction for a recorded event and
// returns the delivery outcome. Errors are absorbed into the audit
// row; callers always answer the provider with success.
func (h *WebhookHandler) process(c echo.Context, event *model.WebhookEvent) model.WebhookStatus {
	ctx := c.Request().Context()

	payload, err := parseWebhookPayload([]byte(event.RawPayload))
	if err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}

	tx, err := h.Events.DB().BeginTx(ctx, nil)
	if err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-lock and re-check: a concurrent delivery or retry may have
	// finished this event between our claim and now.
	locked, err := h.Events.LockForProcessTx(ctx, tx, event.ID)
	if err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}
	if locked.Status == model.WebhookProcessed {
		return model.WebhookDuplicate
	}

	var paidEvent *queue.OrderPaidEvent
	switch payload.Type {
	case eventPaymentPaid:
		paidEvent, err = h.applyPaid(ctx, tx, payload)
	case eventPaymentRefunded:
		err = h.applyRefunded(ctx, tx, payload)
	default:
		// Unknown event types are acknowledged and ignored; retrying
		// them would never succeed.
		log.Printf("webhook: ignoring unknown event type %q (event %d)", payload.Type, event.ID)
	}
	if err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}

	if err := h.Events.MarkProcessedTx(ctx, tx, event.ID); err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}
	if err := tx.Commit(); err != nil {
		h.fail(ctx, event.ID, err)
		return model.WebhookFailed
	}
	committed = true

	// Published only when this delivery performed the paid transition,
	// and only after the transaction is committed.
	if paidEvent != nil {
		_ = h.Notifier.Publish(ctx, service.TopicOrderPaid, *paidEvent)
	}
	return model.WebhookProcessed
}

// applyPaid transitions the referenced order to paid inside tx. Coupon
// consumption and the session's paid flag ride the same transaction,
// so either all of it lands or none does. The returned event is non-nil
// only when this call performed the transition.
func (h *WebhookHandler) applyPaid(ctx context.Context, tx *sql.Tx, payload *webhookPayload) (*queue.OrderPaidEvent, error) {
	order, err := h.Orders.LockByReferenceTx(ctx, tx, payload.OrderReference)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", payload.OrderReference, err)
	}
	now := time.Now().UTC()
	applied, err := h.Orders.MarkPaidTx(ctx, tx, order, payload.ProviderID, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, nil
	}
	if order.CouponCode != nil {
		if err := h.Coupons.ConsumeTx(ctx, tx, *order.CouponCode); err != nil {
			return nil, fmt.Errorf("coupon %s: %w", *order.CouponCode, err)
		}
	}
	if order.SessionID != nil {
		if err := h.Sessions.MarkPaidTx(ctx, tx, *order.SessionID, now); err != nil {
			return nil, fmt.Errorf("session %d: %w", *order.SessionID, err)
		}
	}
	ev := &queue.OrderPaidEvent{
		OrderReference: order.Reference,
		TourID:         order.TourID,
		TotalCents:     order.TotalCents,
		PaidAt:         now.Format(time.RFC3339),
	}
	if order.SessionID != nil {
		ev.SessionID = *order.SessionID
	}
	if order.CouponCode != nil {
		ev.CouponCode = *order.CouponCode
	}
	return ev, nil
}

// applyRefunded transitions the referenced order to refunded. The
// coupon use is not returned; refunds are a money operation, not a
// coupon operation.
func (h *WebhookHandler) applyRefunded(ctx context.Context, tx *sql.Tx, payload *webhookPayload) error {
	order, err := h.Orders.LockByReferenceTx(ctx, tx, payload.OrderReference)
	if err != nil {
		return fmt.Errorf("order %s: %w", payload.OrderReference, err)
	}
	_, err = h.Orders.MarkRefundedTx(ctx, tx, order, time.Now().UTC())
	return err
}

// fail records a processing failure on the audit row. The processing
// transaction already rolled back; this write goes straight to the
// pool so it survives.
func (h *WebhookHandler) fail(ctx context.Context, eventID uint64, cause error) {
	log.Printf("webhook: event %d failed: %v", eventID, cause)
	if err := h.Events.MarkFailed(ctx, eventID, cause.Error()); err != nil {
		log.Printf("webhook: could not mark event %d failed: %v", eventID, err)
	}
}

// ListRetryable handles GET /v1/webhooks/retryable (leader role).
func (h *WebhookHandler) ListRetryable(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	events, err := h.Events.ListRetryable(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "query failed"})
	}
	type view struct {
		ID            uint64              `json:"id"`
		Provider      string              `json:"provider"`
		EventID       string              `json:"eventId"`
		Status        model.WebhookStatus `json:"status"`
		Error         *string             `json:"error,omitempty"`
		DeliveryCount uint32              `json:"deliveryCount"`
		CreatedAt     time.Time           `json:"createdAt"`
	}
	views := make([]view, 0, len(events))
	for _, e := range events {
		views = append(views, view{ID: e.ID, Provider: e.Provider, EventID: e.EventID, Status: e.Status, Error: e.Error, DeliveryCount: e.DeliveryCount, CreatedAt: e.CreatedAt})
	}
	return c.JSON(http.StatusOK, echo.Map{"events": views})
}

// Retry handles POST /v1/webhooks/:id/retry (leader role). It re-runs
// the same processing pipeline a live delivery would; an already
// processed event reports duplicate and changes nothing.
func (h *WebhookHandler) Retry(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_id", "message": "invalid event id"})
	}
	event, err := h.Events.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "event not found"})
	}
	outcome := h.process(c, event)
	return c.JSON(http.StatusOK, echo.Map{"eventId": event.EventID, "outcome": outcome})
}

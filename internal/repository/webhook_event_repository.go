package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// WebhookEventRepo is the audit trail and dedup gate for provider
// payment events. (provider, event_id) carries a unique index; every
// delivery of the same logical event converges on one row.
type WebhookEventRepo struct {
	db *sql.DB
}

func NewWebhookEventRepo(db *sql.DB) *WebhookEventRepo { return &WebhookEventRepo{db: db} }

// DB exposes the pool for the ingest transaction.
func (r *WebhookEventRepo) DB() *sql.DB { return r.db }

const webhookColumns = `id, provider, event_id, raw_payload, status, error_msg, delivery_count, processed_at, created_at`

func scanWebhookEvent(row interface{ Scan(...any) error }) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	var errMsg sql.NullString
	var processedAt sql.NullTime
	err := row.Scan(&e.ID, &e.Provider, &e.EventID, &e.RawPayload, &e.Status, &errMsg,
		&e.DeliveryCount, &processedAt, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		e.Error = &errMsg.String
	}
	if processedAt.Valid {
		e.ProcessedAt = &processedAt.Time
	}
	return &e, nil
}

// ClaimTx acquires the event row for processing inside the caller's
// transaction. The row lock makes concurrent deliveries of the same
// (provider, event_id) mutually exclusive: the second delivery blocks
// here until the first commits, then observes its final status.
//
// Return contract: the event row plus fresh=true when this delivery
// should be processed (new row, or an existing pending/failed row
// being retried). fresh=false means the event was already processed;
// the caller records the duplicate outcome and applies no side
// effects.
func (r *WebhookEventRepo) ClaimTx(ctx context.Context, tx *sql.Tx, provider, eventID, rawPayload string) (*model.WebhookEvent, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE provider = ? AND event_id = ? FOR UPDATE`,
		provider, eventID)
	e, err := scanWebhookEvent(row)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.ExecContext(ctx,
			`INSERT INTO webhook_events (provider, event_id, raw_payload, status, delivery_count) VALUES (?,?,?,?,1)`,
			provider, eventID, rawPayload, model.WebhookPending)
		if err != nil {
			// A concurrent first delivery slipped in between our gap
			// lock and the insert; re-lock its row and fall through to
			// the duplicate/retry logic below.
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				return r.ClaimTx(ctx, tx, provider, eventID, rawPayload)
			}
			return nil, false, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, false, err
		}
		return &model.WebhookEvent{
			ID:            uint64(id),
			Provider:      provider,
			EventID:       eventID,
			RawPayload:    rawPayload,
			Status:        model.WebhookPending,
			DeliveryCount: 1,
		}, true, nil
	case err != nil:
		return nil, false, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE webhook_events SET delivery_count = delivery_count + 1 WHERE id = ?`, e.ID); err != nil {
		return nil, false, err
	}
	e.DeliveryCount++

	return e, retryable(e.Status), nil
}

// retryable reports whether an already-recorded event should be
// processed on this delivery. pending and failed rows are; processed
// ones are final and answered as duplicates.
func retryable(s model.WebhookStatus) bool {
	return s == model.WebhookPending || s == model.WebhookFailed
}

// LockForProcessTx re-locks a previously claimed event at processing
// time. The claim commits in its own transaction so the audit row
// survives a processing failure; this lock then serializes the actual
// order mutation. Callers must re-check the returned status: a
// concurrent delivery may have finished processing in between.
func (r *WebhookEventRepo) LockForProcessTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.WebhookEvent, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE id = ? FOR UPDATE`, id)
	return scanWebhookEvent(row)
}

// MarkProcessedTx finalizes a successfully applied event.
func (r *WebhookEventRepo) MarkProcessedTx(ctx context.Context, tx *sql.Tx, eventID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE webhook_events SET status = ?, error_msg = NULL, processed_at = ? WHERE id = ?`,
		model.WebhookProcessed, time.Now().UTC(), eventID)
	return err
}

// MarkFailed records a processing failure outside the ingest
// transaction (that one rolled back); the event stays retryable.
func (r *WebhookEventRepo) MarkFailed(ctx context.Context, eventID uint64, cause string) error {
	if len(cause) > 1000 {
		cause = cause[:1000]
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_events SET status = ?, error_msg = ? WHERE id = ?`,
		model.WebhookFailed, cause, eventID)
	return err
}

// GetByID returns the audit row by its surrogate id.
func (r *WebhookEventRepo) GetByID(ctx context.Context, id uint64) (*model.WebhookEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+webhookColumns+` FROM webhook_events WHERE id = ?`, id)
	return scanWebhookEvent(row)
}

// GetByProviderEventID returns the audit row for one logical event.
func (r *WebhookEventRepo) GetByProviderEventID(ctx context.Context, provider, eventID string) (*model.WebhookEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE provider = ? AND event_id = ?`, provider, eventID)
	return scanWebhookEvent(row)
}

// ListRetryable returns pending and failed events, oldest first, for
// the administrative retry surface.
func (r *WebhookEventRepo) ListRetryable(ctx context.Context, limit int) ([]model.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE status IN (?, ?) ORDER BY created_at ASC LIMIT ?`,
		model.WebhookPending, model.WebhookFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.WebhookEvent, 0)
	for rows.Next() {
		e, err := scanWebhookEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/tochtwerk/gelukstocht/internal/model"
)

// OrderRepo persists purchase attempts. Status changes are guarded by
// the order lifecycle (open -> paid -> refunded) and are idempotent:
// re-marking a paid order paid is a no-op that must not re-consume the
// coupon or re-fire notifications.
type OrderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the pool for webhook-driven transactions.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `id, reference, tour_id, session_id, status, amount_cents, coupon_code, total_cents,
	provider_id, paid_at, refunded_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var sessionID sql.NullInt64
	var couponCode, providerID sql.NullString
	var paidAt, refundedAt sql.NullTime
	err := row.Scan(&o.ID, &o.Reference, &o.TourID, &sessionID, &o.Status, &o.AmountCents,
		&couponCode, &o.TotalCents, &providerID, &paidAt, &refundedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if sessionID.Valid {
		v := uint64(sessionID.Int64)
		o.SessionID = &v
	}
	if couponCode.Valid {
		o.CouponCode = &couponCode.String
	}
	if providerID.Valid {
		o.ProviderID = &providerID.String
	}
	if paidAt.Valid {
		o.PaidAt = &paidAt.Time
	}
	if refundedAt.Valid {
		o.RefundedAt = &refundedAt.Time
	}
	return &o, nil
}

// Create inserts an open order with a fresh uuid reference and returns
// it fully populated.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	o.Reference = uuid.NewString()
	var sessionID, couponCode any
	if o.SessionID != nil {
		sessionID = *o.SessionID
	}
	if o.CouponCode != nil {
		couponCode = *o.CouponCode
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (reference, tour_id, session_id, status, amount_cents, coupon_code, total_cents)
		 VALUES (?,?,?,?,?,?,?)`,
		o.Reference, o.TourID, sessionID, model.OrderOpen, o.AmountCents, couponCode, o.TotalCents)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID returns an order or sql.ErrNoRows.
func (r *OrderRepo) GetByID(ctx context.Context, id uint64) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	return scanOrder(row)
}

// GetByReference resolves an order from the uuid reference echoed back
// by the payment provider.
func (r *OrderRepo) GetByReference(ctx context.Context, ref string) (*model.Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference = ?`, ref)
	return scanOrder(row)
}

// LockByReferenceTx loads an order FOR UPDATE inside the caller's
// transaction, serializing payment confirmations per order.
func (r *OrderRepo) LockByReferenceTx(ctx context.Context, tx *sql.Tx, ref string) (*model.Order, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE reference = ? FOR UPDATE`, ref)
	return scanOrder(row)
}

// MarkPaidTx transitions a locked order to paid. It reports whether
// this call performed the transition: false means the order was
// already paid and the caller must skip coupon consumption and
// downstream notifications. Any state other than open or paid is a
// lifecycle violation.
func (r *OrderRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, o *model.Order, providerID string, paidAt time.Time) (bool, error) {
	if o.Status == model.OrderPaid {
		return false, nil
	}
	if !o.Status.CanTransition(model.OrderPaid) {
		return false, &model.OrderTransitionError{From: o.Status, To: model.OrderPaid}
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, provider_id = ?, paid_at = ? WHERE id = ? AND status = ?`,
		model.OrderPaid, providerID, paidAt, o.ID, model.OrderOpen)
	if err != nil {
		return false, err
	}
	o.Status = model.OrderPaid
	o.PaidAt = &paidAt
	return true, nil
}

// MarkRefundedTx transitions a locked order to refunded. Idempotent in
// the same way as MarkPaidTx; refunding an open order is a lifecycle
// violation.
func (r *OrderRepo) MarkRefundedTx(ctx context.Context, tx *sql.Tx, o *model.Order, refundedAt time.Time) (bool, error) {
	if o.Status == model.OrderRefunded {
		return false, nil
	}
	if !o.Status.CanTransition(model.OrderRefunded) {
		return false, &model.OrderTransitionError{From: o.Status, To: model.OrderRefunded}
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, refunded_at = ? WHERE id = ? AND status = ?`,
		model.OrderRefunded, refundedAt, o.ID, model.OrderPaid)
	if err != nil {
		return false, err
	}
	o.Status = model.OrderRefunded
	o.RefundedAt = &refundedAt
	return true, nil
}

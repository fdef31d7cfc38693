package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// CouponRepo persists discount codes. Usage counters move only through
// ConsumeTx, which runs inside the same transaction as the order's
// paid-transition, so a use can never be consumed without a payment or
// counted twice for one order.
type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const couponColumns = `id, code, discount_type, discount_value, max_uses, used_count, expires_at, tour_id, created_at`

func scanCoupon(row interface{ Scan(...any) error }) (*model.Coupon, error) {
	var c model.Coupon
	var maxUses sql.NullInt64
	var expiresAt sql.NullTime
	var tourID sql.NullInt64
	err := row.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &maxUses, &c.UsedCount, &expiresAt, &tourID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if maxUses.Valid {
		v := uint32(maxUses.Int64)
		c.MaxUses = &v
	}
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	if tourID.Valid {
		v := uint64(tourID.Int64)
		c.TourID = &v
	}
	return &c, nil
}

// GetByCode resolves a coupon by its normalized code. Returns
// model.ErrCouponNotFound when absent so callers deal in one error
// vocabulary.
func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, code)
	c, err := scanCoupon(row)
	if err == sql.ErrNoRows {
		return nil, model.ErrCouponNotFound
	}
	return c, err
}

// Create inserts a coupon. Codes are stored upper case and must be
// unique.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) (uint64, error) {
	var maxUses, tourID, expiresAt any
	if c.MaxUses != nil {
		maxUses = *c.MaxUses
	}
	if c.TourID != nil {
		tourID = *c.TourID
	}
	if c.ExpiresAt != nil {
		expiresAt = *c.ExpiresAt
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, max_uses, used_count, expires_at, tour_id)
		 VALUES (?,?,?,?,0,?,?)`,
		strings.ToUpper(strings.TrimSpace(c.Code)), c.Type, c.Value, maxUses, expiresAt, tourID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ConsumeTx increments the usage counter for the coupon backing an
// order that just reached paid status. The guard repeats the
// exhaustion check in SQL so concurrent payments sharing one coupon
// cannot push used_count past max_uses; a lost race surfaces as
// ErrCouponExhausted and rolls the payment transaction back.
func (r *CouponRepo) ConsumeTx(ctx context.Context, tx *sql.Tx, code string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count + 1
		 WHERE code = ? AND (max_uses IS NULL OR used_count < max_uses)`,
		strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the code vanished or the last use went to a
		// concurrent order.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons WHERE code = ?`,
			strings.ToUpper(strings.TrimSpace(code))).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrCouponNotFound
		}
		return model.ErrCouponExhausted
	}
	return nil
}

// Deactivate administratively exhausts a coupon by pinning max_uses to
// the current counter. History stays intact; the code just stops
// validating.
func (r *CouponRepo) Deactivate(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	var exists int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM coupons WHERE code = ?`, code).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrCouponNotFound
	}
	_, err := r.db.ExecContext(ctx, `UPDATE coupons SET max_uses = used_count WHERE code = ?`, code)
	return err
}

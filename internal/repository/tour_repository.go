package repository

import (
	"context"
	"database/sql"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// TourRepo provides access to tours. Tours are templates: once a
// session against a tour is active or paused, the tour and its
// checkpoints are frozen until that session ends.
type TourRepo struct {
	db *sql.DB
}

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{db: db} }

// DB exposes the underlying pool so handlers can open transactions
// spanning multiple repositories.
func (r *TourRepo) DB() *sql.DB { return r.db }

const tourColumns = `id, owner_id, title, variant, pricing, flat_price_cents, seat_price_cents, max_teams, published, created_at, updated_at`

func scanTour(row interface{ Scan(...any) error }) (*model.Tour, error) {
	var t model.Tour
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Variant, &t.Pricing,
		&t.FlatPriceCents, &t.SeatPriceCents, &t.MaxTeams, &t.Published,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a tour and returns its ID.
func (r *TourRepo) Create(ctx context.Context, t *model.Tour) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tours (owner_id, title, variant, pricing, flat_price_cents, seat_price_cents, max_teams, published)
		 VALUES (?,?,?,?,?,?,?,?)`,
		t.OwnerID, t.Title, t.Variant, t.Pricing, t.FlatPriceCents, t.SeatPriceCents, t.MaxTeams, t.Published)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a tour or sql.ErrNoRows.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (*model.Tour, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tourColumns+` FROM tours WHERE id = ?`, id)
	return scanTour(row)
}

// ListByOwner returns all tours owned by a leader, newest first.
func (r *TourRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Tour, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tourColumns+` FROM tours WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tours := make([]model.Tour, 0)
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, *t)
	}
	return tours, rows.Err()
}

// hasBlockingSessions reports whether any active or paused session
// references the tour. Such sessions freeze the tour against edits.
func (r *TourRepo) hasBlockingSessions(ctx context.Context, tourID uint64) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions WHERE tour_id = ? AND status IN (?, ?)`,
		tourID, model.SessionActive, model.SessionPaused).Scan(&n)
	return n > 0, err
}

// Update rewrites the mutable tour fields after verifying ownership
// and the mutation policy. Returns ErrForbidden for foreign tours and
// ErrConflict while a session is in flight.
func (r *TourRepo) Update(ctx context.Context, ownerID uint64, t *model.Tour) error {
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM tours WHERE id = ?`, t.ID).Scan(&actualOwner); err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	blocked, err := r.hasBlockingSessions(ctx, t.ID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE tours SET title=?, pricing=?, flat_price_cents=?, seat_price_cents=?, max_teams=?, published=? WHERE id=?`,
		t.Title, t.Pricing, t.FlatPriceCents, t.SeatPriceCents, t.MaxTeams, t.Published, t.ID)
	return err
}

// SetPublished flips the published flag, under the same ownership and
// freeze rules as Update.
func (r *TourRepo) SetPublished(ctx context.Context, ownerID, tourID uint64, published bool) error {
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM tours WHERE id = ?`, tourID).Scan(&actualOwner); err != nil {
		return err
	}
	if actualOwner != ownerID {
		return ErrForbidden
	}
	blocked, err := r.hasBlockingSessions(ctx, tourID)
	if err != nil {
		return err
	}
	if blocked {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx, `UPDATE tours SET published=? WHERE id=?`, published, tourID)
	return err
}

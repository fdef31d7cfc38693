package repository

import (
	"context"
	"database/sql"

	"github.com/tochtwerk/gelukstocht/internal/model"
)

// CheckpointRepo provides access to a tour's ordered checkpoints.
type CheckpointRepo struct {
	db *sql.DB
}

func NewCheckpointRepo(db *sql.DB) *CheckpointRepo { return &CheckpointRepo{db: db} }

const checkpointColumns = `id, tour_id, order_index, title, mission_text, lat, lng, radius_m, polygon_json,
	hint1, hint2, hint3, connection_pts, meaning_pts, joy_pts, growth_pts, time_limit_sec, bonus_photo_pts,
	created_at, updated_at`

func scanCheckpoint(row interface{ Scan(...any) error }) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var poly sql.NullString
	err := row.Scan(&cp.ID, &cp.TourID, &cp.OrderIndex, &cp.Title, &cp.MissionText,
		&cp.Lat, &cp.Lng, &cp.RadiusMeters, &poly,
		&cp.Hint1, &cp.Hint2, &cp.Hint3,
		&cp.ConnectionPts, &cp.MeaningPts, &cp.JoyPts, &cp.GrowthPts,
		&cp.TimeLimitSec, &cp.BonusPhotoPts, &cp.CreatedAt, &cp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if poly.Valid {
		cp.PolygonJSON = poly.String
	}
	return &cp, nil
}

// Create inserts a checkpoint after verifying the tour belongs to the
// caller and is not frozen by a running session.
func (r *CheckpointRepo) Create(ctx context.Context, ownerID uint64, cp *model.Checkpoint) (uint64, error) {
	var actualOwner uint64
	if err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM tours WHERE id = ?`, cp.TourID).Scan(&actualOwner); err != nil {
		return 0, err
	}
	if actualOwner != ownerID {
		return 0, ErrForbidden
	}
	var blocking int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM game_sessions WHERE tour_id = ? AND status IN (?, ?)`,
		cp.TourID, model.SessionActive, model.SessionPaused).Scan(&blocking); err != nil {
		return 0, err
	}
	if blocking > 0 {
		return 0, ErrConflict
	}
	var poly any
	if cp.PolygonJSON != "" {
		poly = cp.PolygonJSON
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO checkpoints (tour_id, order_index, title, mission_text, lat, lng, radius_m, polygon_json,
		   hint1, hint2, hint3, connection_pts, meaning_pts, joy_pts, growth_pts, time_limit_sec, bonus_photo_pts)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		cp.TourID, cp.OrderIndex, cp.Title, cp.MissionText, cp.Lat, cp.Lng, cp.RadiusMeters, poly,
		cp.Hint1, cp.Hint2, cp.Hint3, cp.ConnectionPts, cp.MeaningPts, cp.JoyPts, cp.GrowthPts,
		cp.TimeLimitSec, cp.BonusPhotoPts)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID returns a checkpoint or sql.ErrNoRows.
func (r *CheckpointRepo) GetByID(ctx context.Context, id uint64) (*model.Checkpoint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+checkpointColumns+` FROM checkpoints WHERE id = ?`, id)
	return scanCheckpoint(row)
}

// ListByTour returns a tour's checkpoints in play order.
func (r *CheckpointRepo) ListByTour(ctx context.Context, tourID uint64) ([]model.Checkpoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE tour_id = ? ORDER BY order_index ASC`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cps := make([]model.Checkpoint, 0)
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		cps = append(cps, *cp)
	}
	return cps, rows.Err()
}

// CountByTour returns the number of checkpoints on a tour.
func (r *CheckpointRepo) CountByTour(ctx context.Context, tourID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints WHERE tour_id = ?`, tourID).Scan(&n)
	return n, err
}

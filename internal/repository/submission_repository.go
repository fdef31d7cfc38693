package repository

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// SubmissionRepo persists checkpoint submissions. One row per
// (team, checkpoint); a resubmission replaces the previous payload.
type SubmissionRepo struct {
	db *sql.DB
}

func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{db: db} }

// UpsertTx writes a team's submission for a checkpoint inside the
// caller's transaction. purgeAfter is set for kids variants so the
// retention sweep can find the row later.
func (r *SubmissionRepo) UpsertTx(ctx context.Context, tx *sql.Tx, teamID, checkpointID uint64, payloadJSON, photoURL *string, withBonus bool, purgeAfter *time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (team_id, checkpoint_id, payload_json, photo_url, with_bonus, submitted_at, purge_after)
		 VALUES (?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   payload_json = VALUES(payload_json),
		   photo_url    = VALUES(photo_url),
		   with_bonus   = VALUES(with_bonus),
		   submitted_at = VALUES(submitted_at),
		   purge_after  = VALUES(purge_after)`,
		teamID, checkpointID, payloadJSON, photoURL, withBonus, time.Now().UTC(), purgeAfter)
	return err
}

// CountByTeam returns how many checkpoints a team has submitted.
func (r *SubmissionRepo) CountByTeam(ctx context.Context, teamID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE team_id = ?`, teamID).Scan(&n)
	return n, err
}

// PurgeExpired nulls out the payload of every submission whose
// retention deadline has passed. Rows are processed one by one so a
// single bad row cannot abort the whole sweep; the number of purged
// rows is returned.
func (r *SubmissionRepo) PurgeExpired(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM submissions WHERE purge_after IS NOT NULL AND purge_after <= ? AND (payload_json IS NOT NULL OR photo_url IS NOT NULL)`,
		time.Now().UTC())
	if err != nil {
		return 0, err
	}
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	purged := 0
	for _, id := range ids {
		_, err := r.db.ExecContext(ctx,
			`UPDATE submissions SET payload_json = NULL, photo_url = NULL, purge_after = NULL WHERE id = ?`, id)
		if err != nil {
			log.Printf("retention: purge of submission %d failed: %v", id, err)
			continue
		}
		purged++
	}
	return purged, nil
}

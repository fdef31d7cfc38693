package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/scoring"
)

// ScoreRepo persists per-checkpoint scores and assembles per-team
// rollups. It also guards the write-once narrative insight attached to
// a session.
type ScoreRepo struct {
	db *sql.DB
}

func NewScoreRepo(db *sql.DB) *ScoreRepo { return &ScoreRepo{db: db} }

// UpsertCheckpointScoreTx records a team's score for one checkpoint
// inside the caller's transaction. A resubmission overwrites the
// previous row, so a checkpoint never contributes twice.
func (r *ScoreRepo) UpsertCheckpointScoreTx(ctx context.Context, tx *sql.Tx, teamID, checkpointID uint64, s scoring.AxisScore) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO checkpoint_scores (team_id, checkpoint_id, connection_pts, meaning_pts, joy_pts, growth_pts, bonus_pts, scored_at)
		 VALUES (?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   connection_pts = VALUES(connection_pts),
		   meaning_pts    = VALUES(meaning_pts),
		   joy_pts        = VALUES(joy_pts),
		   growth_pts     = VALUES(growth_pts),
		   bonus_pts      = VALUES(bonus_pts),
		   scored_at      = VALUES(scored_at)`,
		teamID, checkpointID, s.Connection, s.Meaning, s.Joy, s.Growth, s.Bonus, time.Now().UTC())
	return err
}

// TotalsBySession returns per-team rollups for every team in the
// session, ordered by total descending. Teams without any scored
// checkpoint appear with zeros.
func (r *ScoreRepo) TotalsBySession(ctx context.Context, sessionID uint64) ([]model.SessionScore, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.name,
		        COALESCE(SUM(cs.connection_pts),0), COALESCE(SUM(cs.meaning_pts),0),
		        COALESCE(SUM(cs.joy_pts),0), COALESCE(SUM(cs.growth_pts),0),
		        COALESCE(SUM(cs.bonus_pts),0)
		 FROM teams t
		 LEFT JOIN checkpoint_scores cs ON cs.team_id = t.id
		 WHERE t.session_id = ?
		 GROUP BY t.id, t.name
		 ORDER BY SUM(cs.connection_pts + cs.meaning_pts + cs.joy_pts + cs.growth_pts) DESC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	scores := make([]model.SessionScore, 0)
	for rows.Next() {
		var s model.SessionScore
		if err := rows.Scan(&s.TeamID, &s.TeamName, &s.Connection, &s.Meaning, &s.Joy, &s.Growth, &s.Bonus); err != nil {
			return nil, err
		}
		s.Total = s.Connection + s.Meaning + s.Joy + s.Growth
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// ScoredCheckpoints counts how many checkpoints contributed to a
// team's rollup, for normalizing totals to 0-100.
func (r *ScoreRepo) ScoredCheckpoints(ctx context.Context, teamID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoint_scores WHERE team_id = ?`, teamID).Scan(&n)
	return n, err
}

// GetInsight returns the cached narrative insight for a session, or
// sql.ErrNoRows when none has been generated yet.
func (r *ScoreRepo) GetInsight(ctx context.Context, sessionID uint64) (string, error) {
	var insight sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT insight FROM session_insights WHERE session_id = ?`, sessionID).Scan(&insight)
	if err != nil {
		return "", err
	}
	if !insight.Valid {
		return "", sql.ErrNoRows
	}
	return insight.String, nil
}

// SetInsight caches the generated narrative, write-once. The check and
// the write run in one transaction with the existing row (if any)
// locked, so two concurrent first-reads cannot both store a text:
// the loser observes the winner's row and gets ErrInsightExists.
func (r *ScoreRepo) SetInsight(ctx context.Context, sessionID uint64, insight string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var existing sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT insight FROM session_insights WHERE session_id = ? FOR UPDATE`, sessionID).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		// Two concurrent first-writers can both see no row; the unique
		// key on session_id turns the loser's insert into a conflict.
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_insights (session_id, insight, created_at) VALUES (?,?,?)`,
			sessionID, insight, time.Now().UTC()); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				return ErrInsightExists
			}
			return err
		}
	case err != nil:
		return err
	case existing.Valid:
		return ErrInsightExists
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE session_insights SET insight = ? WHERE session_id = ?`, insight, sessionID); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/tochtwerk/gelukstocht/internal/model"
	"github.com/tochtwerk/gelukstocht/internal/utils"
)

// SessionRepo owns persistence for game sessions and their lifecycle.
// Status changes go through ApplyActionTx so the transition table in
// the model is the only authority on what is allowed.
type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the pool for handler-owned transactions.
func (r *SessionRepo) DB() *sql.DB { return r.db }

const sessionColumns = `id, tour_id, leader_id, join_code, status, paid_at, consent_given, consent_at,
	scheduled_at, started_at, ended_at, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.GameSession, error) {
	var s model.GameSession
	var paidAt, consentAt, schedAt, startAt, endAt sql.NullTime
	err := row.Scan(&s.ID, &s.TourID, &s.LeaderID, &s.JoinCode, &s.Status,
		&paidAt, &s.ConsentGiven, &consentAt, &schedAt, &startAt, &endAt,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		s.PaidAt = &paidAt.Time
	}
	if consentAt.Valid {
		s.ConsentAt = &consentAt.Time
	}
	if schedAt.Valid {
		s.ScheduledAt = &schedAt.Time
	}
	if startAt.Valid {
		s.StartedAt = &startAt.Time
	}
	if endAt.Valid {
		s.EndedAt = &endAt.Time
	}
	return &s, nil
}

// Create inserts a draft session with a freshly generated join code.
// Code collisions are retried a few times against the unique index;
// running out of retries is an integrity failure, not a user error.
func (r *SessionRepo) Create(ctx context.Context, tourID, leaderID uint64, scheduledAt *time.Time) (*model.GameSession, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.NewJoinCode()
		if err != nil {
			return nil, err
		}
		res, err := r.db.ExecContext(ctx,
			`INSERT INTO game_sessions (tour_id, leader_id, join_code, status, scheduled_at) VALUES (?,?,?,?,?)`,
			tourID, leaderID, code, model.SessionDraft, scheduledAt)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") {
				log.Printf("session create: join code %s collided, retrying", code)
				continue
			}
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		return r.GetByID(ctx, uint64(id))
	}
	return nil, ErrJoinCodeCollision
}

// GetByID returns a session or sql.ErrNoRows.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.GameSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByJoinCode resolves a session from its join code. Codes are
// stored upper case; callers normalize input first.
func (r *SessionRepo) GetByJoinCode(ctx context.Context, code string) (*model.GameSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE join_code = ?`, code)
	return scanSession(row)
}

// LockTx loads a session with FOR UPDATE inside the caller's
// transaction. Every mutation that must be serialized per session
// (team joins, status changes) starts by taking this lock.
func (r *SessionRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.GameSession, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM game_sessions WHERE id = ? FOR UPDATE`, id)
	return scanSession(row)
}

// ApplyActionTx performs one lifecycle action on a locked session row.
// Preconditions enforced here, all within the caller's transaction:
//   - the caller must be the session's leader
//   - the transition must be allowed by the state machine
//   - start additionally requires a paid order when the tour is priced,
//     and recorded parental consent for kids variants
//
// The row is updated together with the timestamps the target state
// implies. Nothing is written when any check fails.
func (r *SessionRepo) ApplyActionTx(ctx context.Context, tx *sql.Tx, sessionID, leaderID uint64, action model.SessionAction) (*model.GameSession, error) {
	s, err := r.LockTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.LeaderID != leaderID {
		return nil, ErrForbidden
	}
	next, err := model.Transition(s.Status, action)
	if err != nil {
		return nil, err
	}
	if action == model.ActionStart {
		var variant model.Variant
		var priced bool
		err := tx.QueryRowContext(ctx,
			`SELECT variant, (pricing = ? AND flat_price_cents > 0) OR (pricing = ? AND seat_price_cents > 0)
			 FROM tours WHERE id = ?`,
			model.PricingFlat, model.PricingPerPerson, s.TourID).Scan(&variant, &priced)
		if err != nil {
			return nil, err
		}
		if priced && s.PaidAt == nil {
			return nil, ErrNotPaid
		}
		if variant.Kids() && !s.ConsentGiven {
			return nil, ErrConflict
		}
	}

	now := time.Now().UTC()
	var startedAt, endedAt any
	if s.StartedAt != nil {
		startedAt = *s.StartedAt
	}
	if next == model.SessionActive && s.StartedAt == nil {
		startedAt = now
	}
	if next.Terminal() {
		endedAt = now
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE game_sessions SET status=?, started_at=?, ended_at=? WHERE id=?`,
		next, startedAt, endedAt, s.ID); err != nil {
		return nil, err
	}
	s.Status = next
	if t, ok := startedAt.(time.Time); ok {
		s.StartedAt = &t
	}
	if t, ok := endedAt.(time.Time); ok {
		s.EndedAt = &t
	}
	return s, nil
}

// MarkPaidTx stamps the session's paid timestamp when its order is
// confirmed. Idempotent: an already-paid session is left untouched.
func (r *SessionRepo) MarkPaidTx(ctx context.Context, tx *sql.Tx, sessionID uint64, paidAt time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE game_sessions SET paid_at = ? WHERE id = ? AND paid_at IS NULL`,
		paidAt, sessionID)
	return err
}

// RecordConsent stores the parental-consent flag and timestamp for a
// kids-variant session. Consent is required before such a session can
// start.
func (r *SessionRepo) RecordConsent(ctx context.Context, sessionID, leaderID uint64) error {
	var actualLeader uint64
	if err := r.db.QueryRowContext(ctx,
		`SELECT leader_id FROM game_sessions WHERE id = ?`, sessionID).Scan(&actualLeader); err != nil {
		return err
	}
	if actualLeader != leaderID {
		return ErrForbidden
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE game_sessions SET consent_given = TRUE, consent_at = ? WHERE id = ? AND consent_given = FALSE`,
		time.Now().UTC(), sessionID)
	return err
}

// ListByLeader returns a leader's sessions, newest first.
func (r *SessionRepo) ListByLeader(ctx context.Context, leaderID uint64) ([]model.GameSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM game_sessions WHERE leader_id = ? ORDER BY created_at DESC`, leaderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.GameSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

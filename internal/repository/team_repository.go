package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tochtwerk/gelukstocht/internal/model"
)

// TeamRepo persists teams. Team creation is the contended path: two
// requests racing for the last slot, or for the same name in different
// casing, must never both succeed. CreateTx therefore runs its checks
// and the insert against a session row the caller has already locked
// with SessionRepo.LockTx, which serializes joins per session.
type TeamRepo struct {
	db *sql.DB
}

func NewTeamRepo(db *sql.DB) *TeamRepo { return &TeamRepo{db: db} }

// CountBySessionTx counts a session's teams inside the transaction.
func (r *TeamRepo) CountBySessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// NameTakenTx reports whether a team with this name (compared
// case-insensitively) already exists in the session.
func (r *TeamRepo) NameTakenTx(ctx context.Context, tx *sql.Tx, sessionID uint64, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE session_id = ? AND LOWER(name) = LOWER(?)`,
		sessionID, name).Scan(&n)
	return n > 0, err
}

// admitDecision applies the join rules to the state observed under the
// session lock. Capacity is checked before the name so a full session
// reports the same reason no matter what name was tried.
func admitDecision(count, limit uint32, nameTaken bool) error {
	if count >= limit {
		return ErrSessionFull
	}
	if nameTaken {
		return ErrDuplicateTeamName
	}
	return nil
}

// CreateTx admits a team into a locked session. It re-checks capacity
// and name uniqueness inside the transaction; because the session row
// lock serializes concurrent joins, the checks and the insert are one
// atomic step. Returns ErrSessionFull or ErrDuplicateTeamName when a
// check fails; nothing is written in that case.
func (r *TeamRepo) CreateTx(ctx context.Context, tx *sql.Tx, sessionID uint64, name, tokenHash string, limit uint32) (*model.Team, error) {
	count, err := r.CountBySessionTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	taken, err := r.NameTakenTx(ctx, tx, sessionID, name)
	if err != nil {
		return nil, err
	}
	if err := admitDecision(count, limit, taken); err != nil {
		return nil, err
	}
	publicID := uuid.NewString()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO teams (session_id, public_id, name, token_hash) VALUES (?,?,?,?)`,
		sessionID, publicID, name, tokenHash)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &model.Team{
		ID:        uint64(id),
		SessionID: sessionID,
		PublicID:  publicID,
		Name:      name,
		TokenHash: tokenHash,
	}, nil
}

// GetByTokenHash resolves a team from the hash of its bearer token.
// sql.ErrNoRows doubles as "bad credential".
func (r *TeamRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*model.Team, error) {
	var t model.Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, session_id, public_id, name, token_hash, created_at FROM teams WHERE token_hash = ?`,
		tokenHash).Scan(&t.ID, &t.SessionID, &t.PublicID, &t.Name, &t.TokenHash, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListBySession returns a session's teams in join order.
func (r *TeamRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, public_id, name, token_hash, created_at FROM teams WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	teams := make([]model.Team, 0)
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.SessionID, &t.PublicID, &t.Name, &t.TokenHash, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// CountBySession counts teams outside a transaction, for previews.
func (r *TeamRepo) CountBySession(ctx context.Context, sessionID uint64) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

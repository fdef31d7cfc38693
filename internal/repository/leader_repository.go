package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/tochtwerk/gelukstocht/internal/utils"
)

// Leader mirrors the 'leaders' table. Leaders own tours and drive
// session lifecycles; players never get accounts, only team tokens.
type Leader struct {
	ID           uint64
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type LeaderRepo struct{ DB *sql.DB }

func NewLeaderRepo(db *sql.DB) *LeaderRepo { return &LeaderRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts a leader and returns its ID.
func (r *LeaderRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO leaders (email, password_hash, role) VALUES (?,?,?)",
		email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a leader by normalized email.
func (r *LeaderRepo) GetByEmail(ctx context.Context, email string) (Leader, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var l Leader
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM leaders WHERE email=? LIMIT 1",
		email).Scan(&l.ID, &l.Email, &l.PasswordHash, &l.Role, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// GetByID fetches a leader by primary key.
func (r *LeaderRepo) GetByID(ctx context.Context, id uint64) (Leader, error) {
	var l Leader
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM leaders WHERE id=? LIMIT 1",
		id).Scan(&l.ID, &l.Email, &l.PasswordHash, &l.Role, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

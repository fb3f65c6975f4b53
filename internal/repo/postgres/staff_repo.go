package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

type StaffRepo interface {
	FindByEmail(ctx context.Context, email string) (*domain.Staff, error)
	FindByID(ctx context.Context, id int64) (*domain.Staff, error)
}

type StaffRepoImpl struct{ pool *pgxpool.Pool }

func NewStaffRepo(pool *pgxpool.Pool) *StaffRepoImpl { return &StaffRepoImpl{pool: pool} }

const staffCols = `id, name, email, password_hash, role, created_at`

func (r *StaffRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.Staff, error) {
	const q = `SELECT ` + staffCols + ` FROM staff WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Staff
	err := r.pool.QueryRow(ctx, q, email).Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

func (r *StaffRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Staff, error) {
	const q = `SELECT ` + staffCols + ` FROM staff WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.Staff
	err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.Name, &s.Email, &s.PasswordHash, &s.Role, &s.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &s, err
}

var _ StaffRepo = (*StaffRepoImpl)(nil)

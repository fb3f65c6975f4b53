package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

type MemberRepo interface {
	Create(ctx context.Context, req *domain.CreateMemberRequest) (*domain.Member, error)
	FindByID(ctx context.Context, id int64) (*domain.Member, error)
	FindByEmail(ctx context.Context, email string) (*domain.Member, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

type MemberRepoImpl struct{ pool *pgxpool.Pool }

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepoImpl { return &MemberRepoImpl{pool: pool} }

const memberCols = `id, name, email, phone, password_hash, created_at`

func (r *MemberRepoImpl) Create(ctx context.Context, req *domain.CreateMemberRequest) (*domain.Member, error) {
	const q = `INSERT INTO members (name, email, phone) VALUES ($1,$2,$3)
  RETURNING ` + memberCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Member
	var hash *string
	err := r.pool.QueryRow(ctx, q, req.Name, req.Email, req.Phone).Scan(
		&m.ID, &m.Name, &m.Email, &m.Phone, &hash, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MemberRepoImpl) FindByID(ctx context.Context, id int64) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Member
	var hash *string
	err := r.pool.QueryRow(ctx, q, id).Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &hash, &m.CreatedAt)
	if hash != nil {
		m.PasswordHash = *hash
	}
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &m, err
}

func (r *MemberRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.Member, error) {
	const q = `SELECT ` + memberCols + ` FROM members WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var m domain.Member
	var hash *string
	err := r.pool.QueryRow(ctx, q, email).Scan(&m.ID, &m.Name, &m.Email, &m.Phone, &hash, &m.CreatedAt)
	if hash != nil {
		m.PasswordHash = *hash
	}
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &m, err
}

func (r *MemberRepoImpl) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE members SET password_hash=$2 WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	return err
}

var _ MemberRepo = (*MemberRepoImpl)(nil)

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

type PlanRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Plan, error)
	ListActive(ctx context.Context) ([]domain.Plan, error)
}

type PlanRepoImpl struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepoImpl { return &PlanRepoImpl{pool: pool} }

const planCols = `id, code, name, price_cents, currency, duration_days, grants_access,
discount_food, discount_watersports, discount_gift_shop, discount_spa, active`

func scanPlan(row pgx.Row, p *domain.Plan) error {
	return row.Scan(
		&p.ID, &p.Code, &p.Name, &p.PriceCents, &p.Currency, &p.DurationDays, &p.GrantsAccess,
		&p.DiscountFood, &p.DiscountWatersports, &p.DiscountGiftShop, &p.DiscountSpa, &p.Active,
	)
}

func (r *PlanRepoImpl) GetByCode(ctx context.Context, code string) (*domain.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE code=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Plan
	err := scanPlan(r.pool.QueryRow(ctx, q, code), &p)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return &p, err
}

func (r *PlanRepoImpl) ListActive(ctx context.Context) ([]domain.Plan, error) {
	const q = `SELECT ` + planCols + ` FROM plans WHERE active ORDER BY price_cents`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := scanPlan(rows, &p); err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

var _ PlanRepo = (*PlanRepoImpl)(nil)

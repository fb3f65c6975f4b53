package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

type MembershipRepo interface {
	Create(ctx context.Context, memberID, planID int64, status string, start, paidThrough civil.Date) (*domain.Membership, error)
	GetByMemberID(ctx context.Context, memberID int64) (*domain.MembershipWithPlan, error)
	ListByMemberID(ctx context.Context, memberID int64) ([]domain.MembershipWithPlan, error)
	GetByID(ctx context.Context, id int64) (*domain.MembershipWithPlan, error)
	ChangePlan(ctx context.Context, membershipID, planID int64, status string, start, paidThrough civil.Date) error
	ListPaidTier(ctx context.Context, freePlanCode string) ([]SweepRow, error)
	DowngradeToFree(ctx context.Context, membershipID, freePlanID int64, start, paidThrough civil.Date, prevCode, prevName string, downgradedOn civil.Date) (bool, error)
}

// SweepRow carries the joined membership plus the member contact fields the
// sweeper needs for downgrade notices.
type SweepRow struct {
	domain.MembershipWithPlan
	MemberEmail string
	MemberName  string
}

type MembershipRepoImpl struct{ pool *pgxpool.Pool }

func NewMembershipRepo(pool *pgxpool.Pool) *MembershipRepoImpl {
	return &MembershipRepoImpl{pool: pool}
}

const membershipJoinCols = `m.id, m.member_id, m.plan_id, m.status,
m.start_date, m.paid_through, m.last_payment_date, m.needs_contact,
m.prev_plan_code, m.prev_plan_name, m.downgraded_on, m.created_at, m.updated_at,
p.id, p.code, p.name, p.price_cents, p.currency, p.duration_days, p.grants_access,
p.discount_food, p.discount_watersports, p.discount_gift_shop, p.discount_spa, p.active`

// scanJoined normalizes the membership/plan join into the one canonical shape
// every caller sees, nullable dates included.
func scanJoined(row pgx.Row, mp *domain.MembershipWithPlan) error {
	var startDate, paidThrough, lastPayment, downgradedOn *time.Time
	var prevCode, prevName *string

	err := row.Scan(
		&mp.ID, &mp.MemberID, &mp.PlanID, &mp.Status,
		&startDate, &paidThrough, &lastPayment, &mp.NeedsContact,
		&prevCode, &prevName, &downgradedOn, &mp.CreatedAt, &mp.UpdatedAt,
		&mp.Plan.ID, &mp.Plan.Code, &mp.Plan.Name, &mp.Plan.PriceCents, &mp.Plan.Currency,
		&mp.Plan.DurationDays, &mp.Plan.GrantsAccess,
		&mp.Plan.DiscountFood, &mp.Plan.DiscountWatersports, &mp.Plan.DiscountGiftShop,
		&mp.Plan.DiscountSpa, &mp.Plan.Active,
	)
	if err != nil {
		return err
	}

	if startDate != nil {
		mp.StartDate = toDate(*startDate)
	}
	if paidThrough != nil {
		mp.PaidThrough = toDate(*paidThrough)
	}
	mp.LastPaymentDate = toDatePtr(lastPayment)
	mp.DowngradedOn = toDatePtr(downgradedOn)
	if prevCode != nil {
		mp.PrevPlanCode = *prevCode
	}
	if prevName != nil {
		mp.PrevPlanName = *prevName
	}
	return nil
}

func (r *MembershipRepoImpl) Create(ctx context.Context, memberID, planID int64, status string, start, paidThrough civil.Date) (*domain.Membership, error) {
	const q = `INSERT INTO memberships (member_id, plan_id, status, start_date, paid_through)
  VALUES ($1,$2,$3,$4,$5)
  RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m := domain.Membership{
		MemberID:    memberID,
		PlanID:      planID,
		Status:      status,
		StartDate:   start,
		PaidThrough: paidThrough,
	}
	err := r.pool.QueryRow(ctx, q, memberID, planID, status, start.String(), paidThrough.String()).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MembershipRepoImpl) GetByMemberID(ctx context.Context, memberID int64) (*domain.MembershipWithPlan, error) {
	const q = `SELECT ` + membershipJoinCols + `
  FROM memberships m JOIN plans p ON p.id = m.plan_id
  WHERE m.member_id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var mp domain.MembershipWithPlan
	err := scanJoined(r.pool.QueryRow(ctx, q, memberID), &mp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

func (r *MembershipRepoImpl) ListByMemberID(ctx context.Context, memberID int64) ([]domain.MembershipWithPlan, error) {
	const q = `SELECT ` + membershipJoinCols + `
  FROM memberships m JOIN plans p ON p.id = m.plan_id
  WHERE m.member_id = $1
  ORDER BY m.start_date DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mps []domain.MembershipWithPlan
	for rows.Next() {
		var mp domain.MembershipWithPlan
		if err := scanJoined(rows, &mp); err != nil {
			return nil, err
		}
		mps = append(mps, mp)
	}
	return mps, rows.Err()
}

func (r *MembershipRepoImpl) GetByID(ctx context.Context, id int64) (*domain.MembershipWithPlan, error) {
	const q = `SELECT ` + membershipJoinCols + `
  FROM memberships m JOIN plans p ON p.id = m.plan_id
  WHERE m.id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var mp domain.MembershipWithPlan
	err := scanJoined(r.pool.QueryRow(ctx, q, id), &mp)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mp, nil
}

func (r *MembershipRepoImpl) ChangePlan(ctx context.Context, membershipID, planID int64, status string, start, paidThrough civil.Date) error {
	const q = `UPDATE memberships
  SET plan_id=$2, status=$3, start_date=$4, paid_through=$5, updated_at=now()
  WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, membershipID, planID, status, start.String(), paidThrough.String())
	return err
}

func (r *MembershipRepoImpl) ListPaidTier(ctx context.Context, freePlanCode string) ([]SweepRow, error) {
	const q = `SELECT ` + membershipJoinCols + `, mb.email, mb.name
  FROM memberships m
  JOIN plans p ON p.id = m.plan_id
  JOIN members mb ON mb.id = m.member_id
  WHERE p.code <> $1`

	// The sweep scan can touch many rows; give it more room than the
	// single-row queries.
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, freePlanCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SweepRow
	for rows.Next() {
		var sr SweepRow
		var startDate, paidThrough, lastPayment, downgradedOn *time.Time
		var prevCode, prevName *string

		err := rows.Scan(
			&sr.ID, &sr.MemberID, &sr.PlanID, &sr.Status,
			&startDate, &paidThrough, &lastPayment, &sr.NeedsContact,
			&prevCode, &prevName, &downgradedOn, &sr.CreatedAt, &sr.UpdatedAt,
			&sr.Plan.ID, &sr.Plan.Code, &sr.Plan.Name, &sr.Plan.PriceCents, &sr.Plan.Currency,
			&sr.Plan.DurationDays, &sr.Plan.GrantsAccess,
			&sr.Plan.DiscountFood, &sr.Plan.DiscountWatersports, &sr.Plan.DiscountGiftShop,
			&sr.Plan.DiscountSpa, &sr.Plan.Active,
			&sr.MemberEmail, &sr.MemberName,
		)
		if err != nil {
			return nil, err
		}
		if startDate != nil {
			sr.StartDate = toDate(*startDate)
		}
		if paidThrough != nil {
			sr.PaidThrough = toDate(*paidThrough)
		}
		sr.LastPaymentDate = toDatePtr(lastPayment)
		sr.DowngradedOn = toDatePtr(downgradedOn)
		if prevCode != nil {
			sr.PrevPlanCode = *prevCode
		}
		if prevName != nil {
			sr.PrevPlanName = *prevName
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *MembershipRepoImpl) DowngradeToFree(ctx context.Context, membershipID, freePlanID int64, start, paidThrough civil.Date, prevCode, prevName string, downgradedOn civil.Date) (bool, error) {
	// plan_id <> free guard keeps concurrent sweeps idempotent per row.
	const q = `UPDATE memberships
  SET plan_id=$2, status='active', start_date=$3, paid_through=$4, needs_contact=false,
      prev_plan_code=$5, prev_plan_name=$6, downgraded_on=$7, updated_at=now()
  WHERE id=$1 AND plan_id <> $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, membershipID, freePlanID,
		start.String(), paidThrough.String(), prevCode, prevName, downgradedOn.String())
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

var _ MembershipRepo = (*MembershipRepoImpl)(nil)

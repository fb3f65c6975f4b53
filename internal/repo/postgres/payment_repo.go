package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	// MarkPaidAndExtend settles a delivery in one transaction. The status
	// guard in the WHERE clause makes the paid transition atomic under
	// concurrent webhook deliveries, and the membership window update commits
	// or rolls back with it, so a failed extension leaves the payment pending
	// for the provider's retry.
	MarkPaidAndExtend(ctx context.Context, reference, providerTxnID, providerRef string, rawPayload []byte, paidOn civil.Date, membershipID int64, paidThrough civil.Date) (bool, error)
}

type PaymentRepoImpl struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepoImpl { return &PaymentRepoImpl{pool: pool} }

const paymentCols = `id, reference, membership_id, plan_code, amount_cents, currency, status,
provider, provider_txn_id, provider_ref, raw_payload, method, notes, paid_on, created_at, updated_at`

func scanPayment(row pgx.Row, p *domain.Payment) error {
	var txnID, ref, method, notes *string
	var paidOn *time.Time

	err := row.Scan(
		&p.ID, &p.Reference, &p.MembershipID, &p.PlanCode, &p.AmountCents, &p.Currency, &p.Status,
		&p.Provider, &txnID, &ref, &p.RawPayload, &method, &notes, &paidOn, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if txnID != nil {
		p.ProviderTxnID = *txnID
	}
	if ref != nil {
		p.ProviderRef = *ref
	}
	if method != nil {
		p.Method = *method
	}
	if notes != nil {
		p.Notes = *notes
	}
	p.PaidOn = toDatePtr(paidOn)
	return nil
}

func (r *PaymentRepoImpl) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	const q = `INSERT INTO payments (reference, membership_id, plan_code, amount_cents, currency,
    status, provider, provider_ref, method, notes)
  VALUES ($1,$2,$3,$4,$5,'pending',$6,$7,$8,$9)
  RETURNING id, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	out := *p
	out.Status = domain.PaymentPending
	err := r.pool.QueryRow(ctx, q, p.Reference, p.MembershipID, p.PlanCode, p.AmountCents,
		p.Currency, p.Provider, p.ProviderRef, p.Method, p.Notes).
		Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PaymentRepoImpl) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	const q = `SELECT ` + paymentCols + ` FROM payments WHERE reference=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Payment
	err := scanPayment(r.pool.QueryRow(ctx, q, reference), &p)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepoImpl) MarkPaidAndExtend(ctx context.Context, reference, providerTxnID, providerRef string, rawPayload []byte, paidOn civil.Date, membershipID int64, paidThrough civil.Date) (bool, error) {
	const markQ = `UPDATE payments
  SET status='paid', provider_txn_id=$2, provider_ref=$3, raw_payload=$4, paid_on=$5, updated_at=now()
  WHERE reference=$1 AND status <> 'paid'`

	const extendQ = `UPDATE memberships
  SET paid_through=$2, last_payment_date=$3, status='active', needs_contact=false, updated_at=now()
  WHERE id=$1`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, markQ, reference, providerTxnID, providerRef, rawPayload, paidOn.String())
	if err != nil {
		return false, err
	}
	if ct.RowsAffected() == 0 {
		// Another delivery already settled this reference.
		return false, nil
	}

	if _, err := tx.Exec(ctx, extendQ, membershipID, paidThrough.String(), paidOn.String()); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

var _ PaymentRepo = (*PaymentRepoImpl)(nil)

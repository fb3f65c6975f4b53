package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

// ReconcileResult reports what a webhook delivery actually did. Replayed
// deliveries are acknowledged without touching the ledger again.
type ReconcileResult struct {
	Payment  *domain.Payment `json:"payment"`
	Replayed bool            `json:"replayed"`
}

type PaymentService interface {
	Checkout(ctx context.Context, memberID int64, req *domain.CheckoutRequest) (*domain.CheckoutResponse, error)
	Reconcile(ctx context.Context, payload *domain.WebhookPayload, rawBody []byte) (*ReconcileResult, error)
}

type paymentService struct {
	payments    postgres.PaymentRepo
	memberships postgres.MembershipRepo
	members     postgres.MemberRepo
	plans       postgres.PlanRepo
	publisher   events.Publisher
	config      *config.Config
	now         func() time.Time
}

func NewPaymentService(
	payments postgres.PaymentRepo,
	memberships postgres.MembershipRepo,
	members postgres.MemberRepo,
	plans postgres.PlanRepo,
	publisher events.Publisher,
	cfg *config.Config,
) PaymentService {
	if cfg.Stripe.SecretKey != "" {
		stripe.Key = cfg.Stripe.SecretKey
	}
	return &paymentService{
		payments:    payments,
		memberships: memberships,
		members:     members,
		plans:       plans,
		publisher:   publisher,
		config:      cfg,
		now:         time.Now,
	}
}

// Checkout opens a pending ledger entry priced off the plan table. The
// reference is ours, round-tripped through the provider as customReference,
// and is the only key the webhook needs to find its way back.
func (s *paymentService) Checkout(ctx context.Context, memberID int64, req *domain.CheckoutRequest) (*domain.CheckoutResponse, error) {
	plan, err := s.plans.GetByCode(ctx, req.PlanCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil || !plan.Active {
		return nil, domain.ErrPlanNotFound
	}
	if plan.IsFreeTier(s.config.Sweeper.FreePlanCode) {
		return nil, domain.ErrValidation("free tier does not require payment")
	}

	membership, err := s.memberships.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if membership == nil {
		return nil, domain.ErrMembershipNotFound
	}

	payment := &domain.Payment{
		Reference:    "pay_" + uuid.New().String(),
		MembershipID: membership.ID,
		PlanCode:     plan.Code,
		AmountCents:  plan.PriceCents,
		Currency:     plan.Currency,
		Status:       domain.PaymentPending,
		Provider:     "paygate",
		Method:       req.Method,
	}

	resp := &domain.CheckoutResponse{
		AmountCents: plan.PriceCents,
		Currency:    plan.Currency,
	}

	// Card checkouts also open a PaymentIntent so the client can confirm
	// in-app; other methods settle through the provider's hosted flow.
	if req.Method == "card" && s.config.Stripe.SecretKey != "" {
		params := &stripe.PaymentIntentParams{
			Amount:   stripe.Int64(plan.PriceCents),
			Currency: stripe.String(plan.Currency),
		}
		params.AddMetadata("customReference", payment.Reference)
		params.AddMetadata("plan_code", plan.Code)

		pi, err := paymentintent.New(params)
		if err != nil {
			return nil, fmt.Errorf("failed to create payment intent: %w", err)
		}
		payment.Provider = "stripe"
		payment.ProviderRef = pi.ID
		resp.ClientSecret = pi.ClientSecret
	}

	created, err := s.payments.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	resp.Reference = created.Reference

	return resp, nil
}

// Reconcile applies a verified webhook delivery. The paid transition and the
// membership extension run in one transaction behind a status guard, so a
// replayed or raced delivery finds zero rows and is acknowledged without
// extending the membership a second time.
func (s *paymentService) Reconcile(ctx context.Context, payload *domain.WebhookPayload, rawBody []byte) (*ReconcileResult, error) {
	if payload.CustomReference == "" {
		return nil, domain.ErrValidation("customReference is required")
	}

	payment, err := s.payments.GetByReference(ctx, payload.CustomReference)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}
	if payment.Status == domain.PaymentPaid {
		return &ReconcileResult{Payment: payment, Replayed: true}, nil
	}

	plan, err := s.plans.GetByCode(ctx, payment.PlanCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}

	membership, err := s.memberships.GetByID(ctx, payment.MembershipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if membership == nil {
		return nil, domain.ErrMembershipNotFound
	}

	// Paying early never costs days. The new window extends from whichever
	// is later, the current paid-through or today.
	today := civil.Today(s.now())
	base := today
	if !membership.PaidThrough.IsZero() && base.Before(membership.PaidThrough) {
		base = membership.PaidThrough
	}
	paidThrough := base.AddDays(plan.DurationDays)

	// Paid transition and window extension commit together. A failure here
	// leaves the payment pending, so the provider's retry settles it fresh
	// instead of reading a half-applied delivery as a replay.
	won, err := s.payments.MarkPaidAndExtend(ctx, payment.Reference, payload.TransactionID, payload.Reference,
		rawBody, today, membership.ID, paidThrough)
	if err != nil {
		return nil, fmt.Errorf("failed to settle payment: %w", err)
	}
	if !won {
		// Another delivery got there first.
		current, err := s.payments.GetByReference(ctx, payment.Reference)
		if err != nil {
			return nil, fmt.Errorf("failed to reload payment: %w", err)
		}
		return &ReconcileResult{Payment: current, Replayed: true}, nil
	}

	payment, err = s.payments.GetByReference(ctx, payment.Reference)
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment: %w", err)
	}

	if s.publisher != nil {
		member, err := s.members.FindByID(ctx, membership.MemberID)
		if err != nil || member == nil {
			logger.WarnContext(ctx, "failed to load member for reconcile event", "error", err, "member_id", membership.MemberID)
		} else {
			event := events.PaymentReconciledEvent{
				PaymentID:     payment.ID,
				Reference:     payment.Reference,
				MembershipID:  membership.ID,
				MemberEmail:   member.Email,
				MemberName:    member.Name,
				AmountCents:   payment.AmountCents,
				Currency:      payment.Currency,
				PlanCode:      plan.Code,
				PaidThrough:   paidThrough.String(),
				ProviderTxnID: payload.TransactionID,
				ReconciledAt:  s.now().UTC(),
			}
			if err := s.publisher.Publish(ctx, events.PaymentReconciled, event); err != nil {
				logger.ErrorContext(ctx, "failed to publish reconcile event", "error", err, "reference", payment.Reference)
			}
		}
	}

	return &ReconcileResult{Payment: payment, Replayed: false}, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/access"
	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
)

// AccessResult is what gate staff see after a member is resolved.
type AccessResult struct {
	Member     *domain.Member             `json:"member"`
	Membership *domain.MembershipWithPlan `json:"membership,omitempty"`
	Status     domain.MembershipStatus    `json:"status"`
	Granted    bool                       `json:"access_granted"`
}

type MembershipService interface {
	ProvisionMember(ctx context.Context, req *domain.CreateMemberRequest) (*domain.Member, error)
	ResolveAccess(ctx context.Context, memberID int64) (*AccessResult, error)
	ChangePlan(ctx context.Context, memberID int64, planCode string) (*domain.MembershipWithPlan, error)
	ListPlans(ctx context.Context) ([]domain.Plan, error)
}

type membershipService struct {
	members     postgres.MemberRepo
	memberships postgres.MembershipRepo
	plans       postgres.PlanRepo
	config      *config.Config
	now         func() time.Time
}

func NewMembershipService(
	members postgres.MemberRepo,
	memberships postgres.MembershipRepo,
	plans postgres.PlanRepo,
	cfg *config.Config,
) MembershipService {
	return &membershipService{
		members:     members,
		memberships: memberships,
		plans:       plans,
		config:      cfg,
		now:         time.Now,
	}
}

// ProvisionMember creates the member and their default free-tier membership
// with a far-future paid-through, so every member always has exactly one row.
func (s *membershipService) ProvisionMember(ctx context.Context, req *domain.CreateMemberRequest) (*domain.Member, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	freePlan, err := s.plans.GetByCode(ctx, s.config.Sweeper.FreePlanCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load free plan: %w", err)
	}
	if freePlan == nil {
		return nil, domain.ErrPlanNotFound
	}

	member, err := s.members.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	today := civil.Today(s.now())
	_, err = s.memberships.Create(ctx, member.ID, freePlan.ID,
		string(domain.StatusActive), today, today.AddDays(freePlan.DurationDays))
	if err != nil {
		return nil, fmt.Errorf("failed to provision membership: %w", err)
	}

	return member, nil
}

func (s *membershipService) ResolveAccess(ctx context.Context, memberID int64) (*AccessResult, error) {
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}

	// Uniqueness on member_id should make this a single row, but external
	// joins have returned several before; the pick policy is explicit.
	rows, err := s.memberships.ListByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}

	now := s.now()
	picked := access.Pick(now, s.config.Sweeper.FreePlanCode, rows)
	if picked == nil {
		return &AccessResult{
			Member:  member,
			Status:  domain.StatusPending,
			Granted: false,
		}, nil
	}

	decision := access.Resolve(now, s.config.Sweeper.FreePlanCode, access.InputFor(picked))
	return &AccessResult{
		Member:     member,
		Membership: picked,
		Status:     decision.Status,
		Granted:    decision.Granted,
	}, nil
}

func (s *membershipService) ChangePlan(ctx context.Context, memberID int64, planCode string) (*domain.MembershipWithPlan, error) {
	plan, err := s.plans.GetByCode(ctx, planCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil || !plan.Active {
		return nil, domain.ErrPlanNotFound
	}

	current, err := s.memberships.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if current == nil {
		return nil, domain.ErrMembershipNotFound
	}

	// A plan change starts pending; payment confirmation flips it active and
	// stamps the real paid-through.
	today := civil.Today(s.now())
	err = s.memberships.ChangePlan(ctx, current.ID, plan.ID,
		string(domain.StatusPending), today, today)
	if err != nil {
		return nil, fmt.Errorf("failed to change plan: %w", err)
	}

	return s.memberships.GetByID(ctx, current.ID)
}

func (s *membershipService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.plans.ListActive(ctx)
}

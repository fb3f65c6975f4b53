package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/access"
	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

// SweepResult reports one sweeper pass. Ran is false when the throttle
// suppressed the pass entirely.
type SweepResult struct {
	Ran        bool `json:"ran"`
	Scanned    int  `json:"scanned"`
	Downgraded int  `json:"downgraded"`
	Failed     int  `json:"failed"`
}

type SweeperService interface {
	Run(ctx context.Context, force bool) (*SweepResult, error)
	Start(ctx context.Context)
}

type sweeperService struct {
	memberships postgres.MembershipRepo
	plans       postgres.PlanRepo
	settings    postgres.SettingsRepo
	publisher   events.Publisher
	config      *config.Config
	now         func() time.Time
}

func NewSweeperService(
	memberships postgres.MembershipRepo,
	plans postgres.PlanRepo,
	settings postgres.SettingsRepo,
	publisher events.Publisher,
	cfg *config.Config,
) SweeperService {
	return &sweeperService{
		memberships: memberships,
		plans:       plans,
		settings:    settings,
		publisher:   publisher,
		config:      cfg,
		now:         time.Now,
	}
}

// Run walks every paid-tier membership and downgrades the ones that no
// longer grant access. Each downgrade is a guarded UPDATE keyed on the
// current plan, so concurrent sweepers cannot double-apply, and one bad row
// never aborts the pass.
func (s *sweeperService) Run(ctx context.Context, force bool) (*SweepResult, error) {
	now := s.now()

	if !force {
		last, err := s.settings.GetInt64(ctx, postgres.KeySweeperLastRun, 0)
		if err != nil {
			logger.WarnContext(ctx, "failed to read sweeper throttle", "error", err)
		}
		if last > 0 && now.Sub(time.Unix(last, 0)) < s.config.Sweeper.Throttle {
			return &SweepResult{Ran: false}, nil
		}
	}
	if err := s.settings.Set(ctx, postgres.KeySweeperLastRun, strconv.FormatInt(now.Unix(), 10)); err != nil {
		logger.WarnContext(ctx, "failed to stamp sweeper throttle", "error", err)
	}

	freePlan, err := s.plans.GetByCode(ctx, s.config.Sweeper.FreePlanCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load free plan: %w", err)
	}
	if freePlan == nil {
		return nil, domain.ErrPlanNotFound
	}

	rows, err := s.memberships.ListPaidTier(ctx, s.config.Sweeper.FreePlanCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}

	result := &SweepResult{Ran: true, Scanned: len(rows)}
	today := civil.Today(now)

	for i := range rows {
		row := &rows[i]

		decision := access.Resolve(now, s.config.Sweeper.FreePlanCode, access.InputFor(&row.MembershipWithPlan))
		if decision.Status != domain.StatusPastDue && decision.Status != domain.StatusExpired {
			continue
		}

		// Provenance records when the paid coverage actually ended, not when
		// the sweeper happened to run.
		downgradedOn := today
		switch {
		case !row.PaidThrough.IsZero():
			downgradedOn = row.PaidThrough
		case !row.StartDate.IsZero():
			downgradedOn = row.StartDate
		}

		applied, err := s.memberships.DowngradeToFree(ctx, row.ID, freePlan.ID,
			today, today.AddDays(freePlan.DurationDays),
			row.Plan.Code, row.Plan.Name, downgradedOn)
		if err != nil {
			result.Failed++
			logger.ErrorContext(ctx, "failed to downgrade membership", "error", err, "membership_id", row.ID)
			continue
		}
		if !applied {
			// Already moved off the plan since we listed it.
			continue
		}
		result.Downgraded++

		if s.publisher != nil {
			event := events.MembershipDowngradedEvent{
				MemberID:     row.MemberID,
				MemberEmail:  row.MemberEmail,
				MemberName:   row.MemberName,
				PrevPlanCode: row.Plan.Code,
				PrevPlanName: row.Plan.Name,
				DowngradedOn: downgradedOn.String(),
			}
			if err := s.publisher.Publish(ctx, events.MembershipDowngraded, event); err != nil {
				logger.ErrorContext(ctx, "failed to publish downgrade event", "error", err, "member_id", row.MemberID)
			}
		}
	}

	logger.InfoContext(ctx, "sweeper pass complete",
		"scanned", result.Scanned, "downgraded", result.Downgraded, "failed", result.Failed)
	return result, nil
}

// Start runs the sweeper on a ticker until the context is cancelled.
func (s *sweeperService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.Sweeper.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, false); err != nil {
				logger.ErrorContext(ctx, "sweeper pass failed", "error", err)
			}
		}
	}
}

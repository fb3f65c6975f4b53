package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/logger"
)

type CheckinService interface {
	Record(ctx context.Context, memberID int64, staffID *int64) (*domain.CheckinResponse, error)
	History(ctx context.Context, memberID int64, limit, offset int) ([]domain.CheckinEvent, error)
}

type checkinService struct {
	checkins  postgres.CheckinRepo
	settings  postgres.SettingsRepo
	publisher events.Publisher
	now       func() time.Time
}

func NewCheckinService(
	checkins postgres.CheckinRepo,
	settings postgres.SettingsRepo,
	publisher events.Publisher,
) CheckinService {
	return &checkinService{
		checkins:  checkins,
		settings:  settings,
		publisher: publisher,
		now:       time.Now,
	}
}

// Record writes today's visit for the member. The unique index on
// (member_id, visit_day) is the only arbiter of "already checked in";
// there is no read-before-write, so two gates racing both go through
// the insert and exactly one wins.
func (s *checkinService) Record(ctx context.Context, memberID int64, staffID *int64) (*domain.CheckinResponse, error) {
	points, err := s.settings.GetInt64(ctx, postgres.KeyPointsPerCheckin, 1)
	if err != nil {
		logger.WarnContext(ctx, "falling back to default points per check-in", "error", err)
		points = 1
	}

	today := civil.Today(s.now())
	checkin, err := s.checkins.Insert(ctx, memberID, staffID, today, int(points))
	if errors.Is(err, domain.ErrDuplicateCheckin) {
		return &domain.CheckinResponse{
			Duplicate: true,
			Message:   "member already checked in today",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record check-in: %w", err)
	}

	if s.publisher != nil {
		event := events.MemberCheckedInEvent{
			MemberID:  memberID,
			StaffID:   staffID,
			VisitDay:  today.String(),
			Points:    int(points),
			CheckedAt: s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, events.MemberCheckedIn, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish check-in event", "error", err, "member_id", memberID)
		}
	}

	return &domain.CheckinResponse{
		Checkin: checkin,
		Message: "checked in",
	}, nil
}

func (s *checkinService) History(ctx context.Context, memberID int64, limit, offset int) ([]domain.CheckinEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.checkins.ListByMember(ctx, memberID, limit, offset)
}

package domain

import (
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
)

// CheckinEvent is an append-only visit fact. At most one exists per member
// per civil day, enforced by a unique constraint on (member_id, visit_day).
type CheckinEvent struct {
	ID        int64      `json:"id"`
	MemberID  int64      `json:"member_id"`
	StaffID   *int64     `json:"staff_id,omitempty"`
	VisitDay  civil.Date `json:"visit_day"`
	Points    int        `json:"points"`
	CreatedAt time.Time  `json:"created_at"`
}

type CheckinRequest struct {
	MemberID int64 `json:"member_id"`
}

type CheckinResponse struct {
	Checkin   *CheckinEvent `json:"checkin,omitempty"`
	Duplicate bool          `json:"duplicate"`
	Message   string        `json:"message,omitempty"`
}

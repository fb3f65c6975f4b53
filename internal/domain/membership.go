package domain

import (
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
)

type MembershipStatus string

const (
	StatusActive  MembershipStatus = "active"
	StatusDueSoon MembershipStatus = "due_soon"
	StatusPastDue MembershipStatus = "past_due"
	StatusPending MembershipStatus = "pending"
	StatusFree    MembershipStatus = "free"
	StatusExpired MembershipStatus = "expired"
)

func ParseMembershipStatus(s string) (MembershipStatus, bool) {
	switch MembershipStatus(s) {
	case StatusActive, StatusDueSoon, StatusPastDue, StatusPending, StatusFree, StatusExpired:
		return MembershipStatus(s), true
	default:
		return "", false
	}
}

// Membership is the single active membership row for a member. Uniqueness on
// member_id is enforced by the schema; the row is mutated on plan change,
// payment confirmation, or downgrade, never hard-deleted.
type Membership struct {
	ID       int64 `json:"id"`
	MemberID int64 `json:"member_id"`
	PlanID   int64 `json:"plan_id"`

	Status          string      `json:"status"`
	StartDate       civil.Date  `json:"start_date"`
	PaidThrough     civil.Date  `json:"paid_through"`
	LastPaymentDate *civil.Date `json:"last_payment_date,omitempty"`
	NeedsContact    bool        `json:"needs_contact"`

	// Downgrade provenance, stamped by the sweeper.
	PrevPlanCode string      `json:"prev_plan_code,omitempty"`
	PrevPlanName string      `json:"prev_plan_name,omitempty"`
	DowngradedOn *civil.Date `json:"downgraded_on,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MembershipWithPlan is the canonical joined shape handed to the resolver.
// Repos always normalize the plan join into this single form.
type MembershipWithPlan struct {
	Membership
	Plan Plan `json:"plan"`
}

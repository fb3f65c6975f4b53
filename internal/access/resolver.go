// Package access computes effective membership status and gate access.
// The computed result is authoritative; the stored status column is only a
// hint that may short-circuit to a terminal negative state.
package access

import (
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

// DueSoonDays bounds how far out a stored due_soon hint is still honored.
// Access is always granted inside this window.
const DueSoonDays = 5

// GraceDays is how long past expiry a membership reads past_due before it
// settles on expired.
const GraceDays = 30

type Input struct {
	PlanCode     string
	GrantsAccess bool
	DurationDays int
	StoredStatus string
	StartDate    *civil.Date
	PaidThrough  *civil.Date
}

type Decision struct {
	Status  domain.MembershipStatus
	Granted bool
}

// Resolve answers whether the membership grants facility access right now and
// what its display status is. Pure; all clock input comes through now.
func Resolve(now time.Time, freePlanCode string, in Input) Decision {
	// The rewards tier never grants gate access, whatever the dates say.
	if in.PlanCode == freePlanCode {
		return Decision{Status: domain.StatusFree, Granted: false}
	}

	// Stored terminal states short-circuit; a row an operator marked expired
	// or past_due stays off even when the dates would still pass.
	switch domain.MembershipStatus(in.StoredStatus) {
	case domain.StatusExpired:
		return Decision{Status: domain.StatusExpired, Granted: false}
	case domain.StatusPastDue:
		return Decision{Status: domain.StatusPastDue, Granted: false}
	}

	// Missing dates resolve conservatively, never to active.
	if in.PaidThrough == nil || in.PaidThrough.IsZero() {
		return Decision{Status: domain.StatusPending, Granted: false}
	}

	today := civil.Today(now)

	if in.StartDate != nil && !in.StartDate.IsZero() && in.StartDate.After(today) {
		return Decision{Status: domain.StatusPending, Granted: false}
	}

	// No-expiry sentinel: treat as perpetual regardless of the comparison.
	if in.DurationDays >= domain.NoExpiryDays {
		return Decision{Status: domain.StatusActive, Granted: in.GrantsAccess}
	}

	// Valid through the entirety of the paid-through calendar day at the
	// resort. Expiry is the first local-midnight instant after it.
	expiry := civil.EndOfDay(*in.PaidThrough)
	if now.Before(expiry) {
		status := domain.StatusActive
		// A stored due_soon hint passes through, but only while the renewal
		// window it claims is actually open.
		if domain.MembershipStatus(in.StoredStatus) == domain.StatusDueSoon &&
			today.DaysUntil(*in.PaidThrough) <= DueSoonDays {
			status = domain.StatusDueSoon
		}
		return Decision{Status: status, Granted: in.GrantsAccess}
	}

	status := domain.StatusPastDue
	if in.PaidThrough.DaysUntil(today) > GraceDays {
		status = domain.StatusExpired
	}
	return Decision{Status: status, Granted: false}
}

// InputFor builds resolver input from the canonical joined row shape.
func InputFor(mp *domain.MembershipWithPlan) Input {
	in := Input{
		PlanCode:     mp.Plan.Code,
		GrantsAccess: mp.Plan.GrantsAccess,
		DurationDays: mp.Plan.DurationDays,
		StoredStatus: mp.Status,
	}
	if !mp.StartDate.IsZero() {
		sd := mp.StartDate
		in.StartDate = &sd
	}
	if !mp.PaidThrough.IsZero() {
		pt := mp.PaidThrough
		in.PaidThrough = &pt
	}
	return in
}

// Pick chooses one membership when a join unexpectedly yields several rows
// for the same member: the currently granted one wins, otherwise the row
// with the latest start date.
func Pick(now time.Time, freePlanCode string, rows []domain.MembershipWithPlan) *domain.MembershipWithPlan {
	if len(rows) == 0 {
		return nil
	}

	var best *domain.MembershipWithPlan
	bestGranted := false
	for i := range rows {
		row := &rows[i]
		granted := Resolve(now, freePlanCode, InputFor(row)).Granted
		switch {
		case best == nil:
			best, bestGranted = row, granted
		case granted && !bestGranted:
			best, bestGranted = row, granted
		case granted == bestGranted && row.StartDate.After(best.StartDate):
			best = row
		}
	}
	return best
}

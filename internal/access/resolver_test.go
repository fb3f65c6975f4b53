package access

import (
	"testing"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

const freeCode = "rewards_free"

func date(t *testing.T, s string) *civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return &d
}

func local(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, civil.ResortZone)
}

func paidInput(t *testing.T, stored, start, through string) Input {
	t.Helper()
	return Input{
		PlanCode:     "club_monthly_95",
		GrantsAccess: true,
		DurationDays: 30,
		StoredStatus: stored,
		StartDate:    date(t, start),
		PaidThrough:  date(t, through),
	}
}

func TestFreeTierNeverGrantsAccess(t *testing.T) {
	in := Input{
		PlanCode:     freeCode,
		GrantsAccess: true, // even a misconfigured grants flag is ignored
		DurationDays: domain.NoExpiryDays,
		StoredStatus: "active",
		StartDate:    date(t, "2020-01-01"),
		PaidThrough:  date(t, "2099-12-31"),
	}
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted || d.Status != domain.StatusFree {
		t.Errorf("free tier resolved to %+v, want free/denied", d)
	}
}

func TestEndOfDayCutoff(t *testing.T) {
	in := paidInput(t, "active", "2024-02-15", "2024-03-15")

	// Valid through the entirety of the paid-through day.
	d := Resolve(local(2024, 3, 15, 23, 59), freeCode, in)
	if !d.Granted || d.Status != domain.StatusActive {
		t.Errorf("23:59 on paid-through day: got %+v, want active/granted", d)
	}

	// Denied from the very next local midnight.
	d = Resolve(local(2024, 3, 16, 0, 0), freeCode, in)
	if d.Granted {
		t.Error("00:00 after paid-through day should deny access")
	}
	if d.Status != domain.StatusPastDue {
		t.Errorf("freshly lapsed status = %s, want past_due", d.Status)
	}
}

func TestScenarioClubMonthly(t *testing.T) {
	in := paidInput(t, "active", "2024-02-15", "2024-03-15")

	d := Resolve(local(2024, 3, 15, 20, 0), freeCode, in)
	if !d.Granted || d.Status != domain.StatusActive {
		t.Errorf("2024-03-15T20:00 local: got %+v, want active/granted", d)
	}

	d = Resolve(local(2024, 3, 16, 0, 5), freeCode, in)
	if d.Granted {
		t.Error("2024-03-16T00:05 local should deny access")
	}
	if d.Status != domain.StatusPastDue && d.Status != domain.StatusExpired {
		t.Errorf("lapsed status = %s, want past_due or expired", d.Status)
	}
}

func TestStoredTerminalStatesShortCircuit(t *testing.T) {
	// Dates say valid, but an operator marked the row expired.
	in := paidInput(t, "expired", "2024-02-15", "2024-12-31")
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted || d.Status != domain.StatusExpired {
		t.Errorf("stored expired: got %+v, want expired/denied", d)
	}

	in.StoredStatus = "past_due"
	d = Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted || d.Status != domain.StatusPastDue {
		t.Errorf("stored past_due: got %+v, want past_due/denied", d)
	}
}

func TestStoredActiveDoesNotOverrideLapsedDates(t *testing.T) {
	in := paidInput(t, "active", "2023-01-01", "2023-02-01")
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted {
		t.Error("stored active with lapsed dates must not grant access")
	}
	if d.Status != domain.StatusExpired {
		t.Errorf("long-lapsed status = %s, want expired", d.Status)
	}
}

func TestStoredDueSoonHint(t *testing.T) {
	// Honored inside the renewal window.
	in := paidInput(t, "due_soon", "2024-02-15", "2024-03-17")
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if !d.Granted || d.Status != domain.StatusDueSoon {
		t.Errorf("due_soon inside window: got %+v, want due_soon/granted", d)
	}

	// A stale hint on a freshly renewed row falls back to active.
	in.PaidThrough = date(t, "2024-06-15")
	d = Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if !d.Granted || d.Status != domain.StatusActive {
		t.Errorf("stale due_soon hint: got %+v, want active/granted", d)
	}
}

func TestMissingDatesResolvePending(t *testing.T) {
	in := Input{
		PlanCode:     "club_monthly_95",
		GrantsAccess: true,
		DurationDays: 30,
		StoredStatus: "active",
	}
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted || d.Status != domain.StatusPending {
		t.Errorf("missing paid-through: got %+v, want pending/denied", d)
	}
}

func TestFutureStartDateIsPending(t *testing.T) {
	in := paidInput(t, "active", "2024-04-01", "2024-05-01")
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted || d.Status != domain.StatusPending {
		t.Errorf("future start: got %+v, want pending/denied", d)
	}
}

func TestNoExpirySentinel(t *testing.T) {
	in := Input{
		PlanCode:     "club_staff",
		GrantsAccess: true,
		DurationDays: domain.NoExpiryDays,
		StoredStatus: "active",
		StartDate:    date(t, "2014-01-01"),
		PaidThrough:  date(t, "2014-01-02"), // ancient, yet perpetual
	}
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if !d.Granted || d.Status != domain.StatusActive {
		t.Errorf("perpetual plan: got %+v, want active/granted", d)
	}
}

func TestDiscountOnlyTierDeniedButActive(t *testing.T) {
	in := paidInput(t, "active", "2024-02-15", "2024-12-31")
	in.PlanCode = "club_dining"
	in.GrantsAccess = false
	d := Resolve(local(2024, 3, 15, 12, 0), freeCode, in)
	if d.Granted {
		t.Error("discount-only tier must not grant gate access")
	}
	if d.Status != domain.StatusActive {
		t.Errorf("discount-only status = %s, want active", d.Status)
	}
}

func TestPickPrefersGrantedThenLatestStart(t *testing.T) {
	now := local(2024, 3, 15, 12, 0)

	mk := func(start, through string, grants bool) domain.MembershipWithPlan {
		return domain.MembershipWithPlan{
			Membership: domain.Membership{
				Status:      "active",
				StartDate:   *date(t, start),
				PaidThrough: *date(t, through),
			},
			Plan: domain.Plan{Code: "club_monthly_95", GrantsAccess: grants, DurationDays: 30},
		}
	}

	// Lapsed row with later start vs granted row with earlier start.
	rows := []domain.MembershipWithPlan{
		mk("2024-03-01", "2023-06-01", true), // lapsed
		mk("2024-01-01", "2024-12-31", true), // granted
	}
	got := Pick(now, freeCode, rows)
	if got == nil || got.PaidThrough.String() != "2024-12-31" {
		t.Fatalf("Pick should prefer the currently granted row, got %+v", got)
	}

	// No granted rows: latest start date wins.
	rows = []domain.MembershipWithPlan{
		mk("2023-01-01", "2023-02-01", true),
		mk("2023-06-01", "2023-07-01", true),
	}
	got = Pick(now, freeCode, rows)
	if got == nil || got.StartDate.String() != "2023-06-01" {
		t.Fatalf("Pick should fall back to latest start date, got %+v", got)
	}

	if Pick(now, freeCode, nil) != nil {
		t.Error("Pick of no rows should be nil")
	}
}

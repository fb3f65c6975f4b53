package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/internal/service"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/events"
)

func sweepRow(memberships *mockMembershipRepo, memberID int64, paidThrough civil.Date) postgres.SweepRow {
	today := civil.Today(time.Now())
	row := memberships.put(memberID, clubPlan(), string(domain.StatusActive), today.AddDays(-200), paidThrough)
	return postgres.SweepRow{
		MembershipWithPlan: *row,
		MemberEmail:        "member@example.com",
		MemberName:         "Test Member",
	}
}

func TestSweepDowngradesLapsed(t *testing.T) {
	memberships := newMockMembershipRepo()
	today := civil.Today(time.Now())

	// Lapsed well past the grace window; goes.
	expired := sweepRow(memberships, 1, today.AddDays(-60))
	// Lapsed but inside grace; reads past_due, access is gone, so it goes too.
	lapsed := sweepRow(memberships, 2, today.AddDays(-10))
	// Paid up; stays.
	current := sweepRow(memberships, 3, today.AddDays(20))
	memberships.sweepRows = []postgres.SweepRow{expired, lapsed, current}

	pub := &mockPublisher{}
	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan(), clubPlan()), newMockSettingsRepo(), pub, testConfig())

	result, err := svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ran {
		t.Fatal("forced run must not throttle")
	}
	if result.Scanned != 3 || result.Downgraded != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want scanned 3 downgraded 2 failed 0", result)
	}

	if len(memberships.downgrades) != 2 {
		t.Fatalf("downgrades = %+v, want memberships %d and %d", memberships.downgrades, expired.ID, lapsed.ID)
	}
	for i, want := range []struct {
		id int64
		on civil.Date
	}{
		// Provenance is the day the paid coverage ended, not the sweep day.
		{expired.ID, today.AddDays(-60)},
		{lapsed.ID, today.AddDays(-10)},
	} {
		got := memberships.downgrades[i]
		if got.membershipID != want.id || got.downgradedOn != want.on {
			t.Errorf("downgrade %d = %+v, want membership %d stamped %s", i, got, want.id, want.on)
		}
	}
	if row := memberships.rows[current.ID]; row.PlanID != clubPlan().ID {
		t.Errorf("paid-up membership %d was moved off its plan", current.ID)
	}

	if len(pub.published) != 2 || pub.published[0].subject != events.MembershipDowngraded {
		t.Fatalf("expected two %s events, got %+v", events.MembershipDowngraded, pub.published)
	}
	event := pub.published[0].data.(events.MembershipDowngradedEvent)
	if event.PrevPlanCode != "club_monthly" || event.MemberEmail != "member@example.com" {
		t.Errorf("unexpected event payload: %+v", event)
	}
	if event.DowngradedOn != today.AddDays(-60).String() {
		t.Errorf("event downgraded_on = %s, want %s", event.DowngradedOn, today.AddDays(-60))
	}
}

func TestSweepThrottled(t *testing.T) {
	settings := newMockSettingsRepo()
	settings.vals[postgres.KeySweeperLastRun] = strconv.FormatInt(time.Now().Unix(), 10)

	memberships := newMockMembershipRepo()
	today := civil.Today(time.Now())
	memberships.sweepRows = []postgres.SweepRow{sweepRow(memberships, 1, today.AddDays(-60))}

	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan()), settings, &mockPublisher{}, testConfig())

	result, err := svc.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Ran {
		t.Fatal("run inside the throttle window must be suppressed")
	}
	if len(memberships.downgrades) != 0 {
		t.Errorf("throttled run downgraded %d rows", len(memberships.downgrades))
	}
}

func TestSweepForceBypassesThrottle(t *testing.T) {
	settings := newMockSettingsRepo()
	settings.vals[postgres.KeySweeperLastRun] = strconv.FormatInt(time.Now().Unix(), 10)

	memberships := newMockMembershipRepo()
	today := civil.Today(time.Now())
	memberships.sweepRows = []postgres.SweepRow{sweepRow(memberships, 1, today.AddDays(-60))}

	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan()), settings, &mockPublisher{}, testConfig())

	result, err := svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Ran || result.Downgraded != 1 {
		t.Fatalf("result = %+v, want forced run with 1 downgrade", result)
	}
}

func TestSweepContinuesPastFailure(t *testing.T) {
	memberships := newMockMembershipRepo()
	today := civil.Today(time.Now())

	bad := sweepRow(memberships, 1, today.AddDays(-60))
	good := sweepRow(memberships, 2, today.AddDays(-60))
	memberships.sweepRows = []postgres.SweepRow{bad, good}
	memberships.downgradeErrFor[bad.ID] = errors.New("deadlock detected")

	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan()), newMockSettingsRepo(), &mockPublisher{}, testConfig())

	result, err := svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("one bad row must not abort the pass: %v", err)
	}
	if result.Downgraded != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 downgraded 1 failed", result)
	}
	if len(memberships.downgrades) != 1 || memberships.downgrades[0].membershipID != good.ID {
		t.Fatalf("downgrades = %+v, want only membership %d", memberships.downgrades, good.ID)
	}
}

func TestSweepSkipsAlreadyMovedRow(t *testing.T) {
	memberships := newMockMembershipRepo()
	today := civil.Today(time.Now())

	row := sweepRow(memberships, 1, today.AddDays(-60))
	memberships.sweepRows = []postgres.SweepRow{row}
	// The guarded UPDATE finds zero rows when another sweeper raced us.
	memberships.downgradeAppliedFor[row.ID] = false

	pub := &mockPublisher{}
	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan()), newMockSettingsRepo(), pub, testConfig())

	result, err := svc.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Downgraded != 0 || result.Failed != 0 {
		t.Fatalf("result = %+v, want nothing counted for a raced row", result)
	}
	if len(pub.published) != 0 {
		t.Errorf("raced row published %d events, want 0", len(pub.published))
	}
}

func TestSweepStampsThrottle(t *testing.T) {
	settings := newMockSettingsRepo()
	memberships := newMockMembershipRepo()

	svc := service.NewSweeperService(memberships, newMockPlanRepo(freePlan()), settings, &mockPublisher{}, testConfig())

	if _, err := svc.Run(context.Background(), false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := settings.vals[postgres.KeySweeperLastRun]; !ok {
		t.Fatal("run must stamp the throttle key")
	}
}

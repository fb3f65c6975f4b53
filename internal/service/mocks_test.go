package service_test

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
	"github.com/wwellington85/gym-membership-app-sub000/internal/repo/postgres"
	"github.com/wwellington85/gym-membership-app-sub000/pkg/config"
)

// ---------- Mocks ----------

type mockMemberRepo struct {
	members map[int64]*domain.Member
	nextID  int64
}

func newMockMemberRepo() *mockMemberRepo {
	return &mockMemberRepo{members: make(map[int64]*domain.Member), nextID: 1}
}

func (m *mockMemberRepo) Create(_ context.Context, req *domain.CreateMemberRequest) (*domain.Member, error) {
	member := &domain.Member{
		ID:        m.nextID,
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}
	m.members[member.ID] = member
	m.nextID++
	return member, nil
}

func (m *mockMemberRepo) FindByID(_ context.Context, id int64) (*domain.Member, error) {
	return m.members[id], nil
}

func (m *mockMemberRepo) FindByEmail(_ context.Context, email string) (*domain.Member, error) {
	for _, member := range m.members {
		if member.Email == email {
			return member, nil
		}
	}
	return nil, nil
}

func (m *mockMemberRepo) SetPassword(_ context.Context, id int64, hash string) error {
	member, ok := m.members[id]
	if !ok {
		return fmt.Errorf("no member %d", id)
	}
	member.PasswordHash = hash
	return nil
}

type mockPlanRepo struct {
	plans map[string]*domain.Plan
}

func newMockPlanRepo(plans ...*domain.Plan) *mockPlanRepo {
	r := &mockPlanRepo{plans: make(map[string]*domain.Plan)}
	for _, p := range plans {
		r.plans[p.Code] = p
	}
	return r
}

func (m *mockPlanRepo) GetByCode(_ context.Context, code string) (*domain.Plan, error) {
	return m.plans[code], nil
}

func (m *mockPlanRepo) ListActive(_ context.Context) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, p := range m.plans {
		if p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

type downgradeCall struct {
	membershipID int64
	freePlanID   int64
	downgradedOn civil.Date
}

type extendCall struct {
	membershipID int64
	paidThrough  civil.Date
	lastPayment  civil.Date
}

type mockMembershipRepo struct {
	rows     map[int64]*domain.MembershipWithPlan
	byMember map[int64]int64 // member id -> membership id
	nextID   int64

	sweepRows []postgres.SweepRow

	extends    []extendCall
	downgrades []downgradeCall

	downgradeErrFor     map[int64]error
	downgradeAppliedFor map[int64]bool // default true
}

func newMockMembershipRepo() *mockMembershipRepo {
	return &mockMembershipRepo{
		rows:                make(map[int64]*domain.MembershipWithPlan),
		byMember:            make(map[int64]int64),
		nextID:              1,
		downgradeErrFor:     make(map[int64]error),
		downgradeAppliedFor: make(map[int64]bool),
	}
}

func (m *mockMembershipRepo) put(memberID int64, plan *domain.Plan, status string, start, paidThrough civil.Date) *domain.MembershipWithPlan {
	row := &domain.MembershipWithPlan{
		Membership: domain.Membership{
			ID:          m.nextID,
			MemberID:    memberID,
			PlanID:      plan.ID,
			Status:      status,
			StartDate:   start,
			PaidThrough: paidThrough,
		},
		Plan: *plan,
	}
	m.rows[row.ID] = row
	m.byMember[memberID] = row.ID
	m.nextID++
	return row
}

func (m *mockMembershipRepo) Create(_ context.Context, memberID, planID int64, status string, start, paidThrough civil.Date) (*domain.Membership, error) {
	row := &domain.MembershipWithPlan{
		Membership: domain.Membership{
			ID:          m.nextID,
			MemberID:    memberID,
			PlanID:      planID,
			Status:      status,
			StartDate:   start,
			PaidThrough: paidThrough,
		},
	}
	m.rows[row.ID] = row
	m.byMember[memberID] = row.ID
	m.nextID++
	ms := row.Membership
	return &ms, nil
}

func (m *mockMembershipRepo) GetByMemberID(_ context.Context, memberID int64) (*domain.MembershipWithPlan, error) {
	id, ok := m.byMember[memberID]
	if !ok {
		return nil, nil
	}
	return m.rows[id], nil
}

func (m *mockMembershipRepo) ListByMemberID(_ context.Context, memberID int64) ([]domain.MembershipWithPlan, error) {
	id, ok := m.byMember[memberID]
	if !ok {
		return nil, nil
	}
	return []domain.MembershipWithPlan{*m.rows[id]}, nil
}

func (m *mockMembershipRepo) GetByID(_ context.Context, id int64) (*domain.MembershipWithPlan, error) {
	return m.rows[id], nil
}

func (m *mockMembershipRepo) ChangePlan(_ context.Context, membershipID, planID int64, status string, start, paidThrough civil.Date) error {
	row, ok := m.rows[membershipID]
	if !ok {
		return fmt.Errorf("no membership %d", membershipID)
	}
	row.PlanID = planID
	row.Status = status
	row.StartDate = start
	row.PaidThrough = paidThrough
	return nil
}

func (m *mockMembershipRepo) ExtendPaidThrough(_ context.Context, membershipID int64, paidThrough, lastPayment civil.Date) error {
	row, ok := m.rows[membershipID]
	if !ok {
		return fmt.Errorf("no membership %d", membershipID)
	}
	row.Status = string(domain.StatusActive)
	row.PaidThrough = paidThrough
	lp := lastPayment
	row.LastPaymentDate = &lp
	m.extends = append(m.extends, extendCall{membershipID, paidThrough, lastPayment})
	return nil
}

func (m *mockMembershipRepo) ListPaidTier(_ context.Context, _ string) ([]postgres.SweepRow, error) {
	return m.sweepRows, nil
}

func (m *mockMembershipRepo) DowngradeToFree(_ context.Context, membershipID, freePlanID int64, start, paidThrough civil.Date, prevCode, prevName string, downgradedOn civil.Date) (bool, error) {
	if err := m.downgradeErrFor[membershipID]; err != nil {
		return false, err
	}
	applied, set := m.downgradeAppliedFor[membershipID]
	if !set {
		applied = true
	}
	if applied {
		m.downgrades = append(m.downgrades, downgradeCall{membershipID, freePlanID, downgradedOn})
		if row, ok := m.rows[membershipID]; ok {
			row.PlanID = freePlanID
			row.Status = string(domain.StatusFree)
			row.StartDate = start
			row.PaidThrough = paidThrough
			row.PrevPlanCode = prevCode
			row.PrevPlanName = prevName
			d := downgradedOn
			row.DowngradedOn = &d
		}
	}
	return applied, nil
}

type insertedCheckin struct {
	memberID int64
	staffID  *int64
	visitDay civil.Date
	points   int
}

type mockCheckinRepo struct {
	inserted  []insertedCheckin
	insertErr error
	nextID    int64
}

func (m *mockCheckinRepo) Insert(_ context.Context, memberID int64, staffID *int64, visitDay civil.Date, points int) (*domain.CheckinEvent, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.inserted = append(m.inserted, insertedCheckin{memberID, staffID, visitDay, points})
	m.nextID++
	return &domain.CheckinEvent{
		ID:        m.nextID,
		MemberID:  memberID,
		StaffID:   staffID,
		VisitDay:  visitDay,
		Points:    points,
		CreatedAt: time.Now(),
	}, nil
}

func (m *mockCheckinRepo) ListByMember(_ context.Context, memberID int64, limit, offset int) ([]domain.CheckinEvent, error) {
	return nil, nil
}

func (m *mockCheckinRepo) CountForDay(_ context.Context, _ civil.Date) (int64, error) {
	return int64(len(m.inserted)), nil
}

type mockSettingsRepo struct {
	vals   map[string]string
	getErr error
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{vals: make(map[string]string)}
}

func (m *mockSettingsRepo) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.vals[key]
	return v, ok, nil
}

func (m *mockSettingsRepo) Set(_ context.Context, key, value string) error {
	m.vals[key] = value
	return nil
}

func (m *mockSettingsRepo) GetInt64(_ context.Context, key string, fallback int64) (int64, error) {
	if m.getErr != nil {
		return fallback, m.getErr
	}
	v, ok := m.vals[key]
	if !ok {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

func (m *mockSettingsRepo) SetInt64(_ context.Context, key string, value int64) error {
	m.vals[key] = strconv.FormatInt(value, 10)
	return nil
}

type mockPaymentRepo struct {
	payments map[string]*domain.Payment
	nextID   int64

	// memberships receives the window extension when a settle wins, the way
	// the real transaction updates both tables together.
	memberships *mockMembershipRepo
	// extendErrOnce fails the next settle attempt before anything is
	// written, then clears.
	extendErrOnce error
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*domain.Payment), nextID: 1}
}

func (m *mockPaymentRepo) Create(_ context.Context, p *domain.Payment) (*domain.Payment, error) {
	cp := *p
	cp.ID = m.nextID
	cp.Status = domain.PaymentPending
	cp.CreatedAt = time.Now()
	m.nextID++
	m.payments[cp.Reference] = &cp
	return &cp, nil
}

func (m *mockPaymentRepo) GetByReference(_ context.Context, reference string) (*domain.Payment, error) {
	return m.payments[reference], nil
}

func (m *mockPaymentRepo) MarkPaidAndExtend(ctx context.Context, reference, providerTxnID, providerRef string, rawPayload []byte, paidOn civil.Date, membershipID int64, paidThrough civil.Date) (bool, error) {
	p, ok := m.payments[reference]
	if !ok || p.Status == domain.PaymentPaid {
		return false, nil
	}
	if m.extendErrOnce != nil {
		err := m.extendErrOnce
		m.extendErrOnce = nil
		return false, err
	}
	p.Status = domain.PaymentPaid
	p.ProviderTxnID = providerTxnID
	p.ProviderRef = providerRef
	p.RawPayload = rawPayload
	d := paidOn
	p.PaidOn = &d
	if m.memberships != nil {
		m.memberships.ExtendPaidThrough(ctx, membershipID, paidThrough, paidOn)
	}
	return true, nil
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type mockPublisher struct {
	published  []publishedEvent
	publishErr error
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedEvent{subject, data})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// ---------- Fixtures ----------

const freeCode = "rewards_free"

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret",
			MemberTokenTTL: time.Hour,
			StaffTokenTTL:  time.Hour,
		},
		Sweeper: config.SweeperConfig{
			Interval:     time.Minute,
			Throttle:     5 * time.Minute,
			FreePlanCode: freeCode,
		},
	}
}

func freePlan() *domain.Plan {
	return &domain.Plan{
		ID:           1,
		Code:         freeCode,
		Name:         "Rewards",
		DurationDays: domain.NoExpiryDays,
		GrantsAccess: false,
		Active:       true,
	}
}

func clubPlan() *domain.Plan {
	return &domain.Plan{
		ID:           2,
		Code:         "club_monthly",
		Name:         "Club Monthly",
		PriceCents:   9900,
		Currency:     "USD",
		DurationDays: 30,
		GrantsAccess: true,
		Active:       true,
	}
}

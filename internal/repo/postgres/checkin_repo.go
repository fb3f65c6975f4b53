package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
	"github.com/wwellington85/gym-membership-app-sub000/internal/domain"
)

// uniqueViolation is the Postgres error code for a unique-constraint hit.
const uniqueViolation = "23505"

type CheckinRepo interface {
	// Insert records a visit for the member on the given civil day. A second
	// insert for the same (member, day) returns domain.ErrDuplicateCheckin.
	Insert(ctx context.Context, memberID int64, staffID *int64, visitDay civil.Date, points int) (*domain.CheckinEvent, error)
	ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]domain.CheckinEvent, error)
	CountForDay(ctx context.Context, visitDay civil.Date) (int64, error)
}

type CheckinRepoImpl struct{ pool *pgxpool.Pool }

func NewCheckinRepo(pool *pgxpool.Pool) *CheckinRepoImpl { return &CheckinRepoImpl{pool: pool} }

func (r *CheckinRepoImpl) Insert(ctx context.Context, memberID int64, staffID *int64, visitDay civil.Date, points int) (*domain.CheckinEvent, error) {
	// No existence pre-query: the unique constraint on (member_id, visit_day)
	// is the sole arbiter, which keeps concurrent scans lock-free.
	const q = `INSERT INTO checkin_events (member_id, staff_id, visit_day, points)
  VALUES ($1,$2,$3,$4)
  RETURNING id, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ev := domain.CheckinEvent{
		MemberID: memberID,
		StaffID:  staffID,
		VisitDay: visitDay,
		Points:   points,
	}
	err := r.pool.QueryRow(ctx, q, memberID, staffID, visitDay.String(), points).
		Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateCheckin
		}
		return nil, err
	}
	return &ev, nil
}

func (r *CheckinRepoImpl) ListByMember(ctx context.Context, memberID int64, limit, offset int) ([]domain.CheckinEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT id, member_id, staff_id, visit_day, points, created_at
  FROM checkin_events WHERE member_id=$1
  ORDER BY visit_day DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, memberID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	evs := make([]domain.CheckinEvent, 0, limit)
	for rows.Next() {
		var ev domain.CheckinEvent
		var day time.Time
		if err := rows.Scan(&ev.ID, &ev.MemberID, &ev.StaffID, &day, &ev.Points, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.VisitDay = toDate(day)
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

func (r *CheckinRepoImpl) CountForDay(ctx context.Context, visitDay civil.Date) (int64, error) {
	const q = `SELECT count(*) FROM checkin_events WHERE visit_day=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int64
	err := r.pool.QueryRow(ctx, q, visitDay.String()).Scan(&n)
	return n, err
}

var _ CheckinRepo = (*CheckinRepoImpl)(nil)

package postgres

import (
	"time"

	"github.com/wwellington85/gym-membership-app-sub000/internal/civil"
)

// Postgres date columns scan as midnight-UTC time.Time values; convert them
// straight to civil dates so no local offset can shift the day.
func toDate(t time.Time) civil.Date {
	return civil.DateOf(t.UTC())
}

func toDatePtr(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := toDate(*t)
	return &d
}

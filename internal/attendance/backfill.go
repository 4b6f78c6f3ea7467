package attendance

import (
	"math/rand"
	"time"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

// Default backfill window and present rate for new staff accounts.
var (
	DefaultBackfillStart = time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	DefaultBackfillEnd   = time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC)
)

const DefaultPresentRate = 0.85

// StatusFunc decides the status of one backfilled weekday.
type StatusFunc func(day time.Time) domain.Status

// RandomStatus draws present with probability rate.
func RandomStatus(rate float64) StatusFunc {
	return func(time.Time) domain.Status {
		if rand.Float64() < rate {
			return domain.StatusPresent
		}
		return domain.StatusAbsent
	}
}

// Always returns a StatusFunc that yields st for every day.
func Always(st domain.Status) StatusFunc {
	return func(time.Time) domain.Status { return st }
}

// Backfill returns one unkeyed record per weekday from start to end,
// inclusive. Saturdays and Sundays are skipped.
func Backfill(userID int, start, end time.Time, status StatusFunc) []domain.AttendanceRecord {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	out := []domain.AttendanceRecord{}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, domain.AttendanceRecord{
			UserID: userID,
			Status: status(day),
			Date:   day.Format(domain.DateLayout),
		})
	}
	return out
}

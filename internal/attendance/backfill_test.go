package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/domain"
)

func TestBackfillSkipsWeekends(t *testing.T) {
	records := Backfill(7, DefaultBackfillStart, DefaultBackfillEnd, Always(domain.StatusPresent))
	require.Len(t, records, 67)
	assert.Equal(t, "2025-04-01", records[0].Date)
	assert.Equal(t, "2025-07-02", records[len(records)-1].Date)

	for _, r := range records {
		day, err := time.Parse(domain.DateLayout, r.Date)
		require.NoError(t, err)
		assert.NotContains(t, []time.Weekday{time.Saturday, time.Sunday}, day.Weekday(), r.Date)
		assert.Equal(t, 7, r.UserID)
		assert.Zero(t, r.ID)
	}
}

func TestBackfillUsesStatusFunc(t *testing.T) {
	mondays := func(day time.Time) domain.Status {
		if day.Weekday() == time.Monday {
			return domain.StatusAbsent
		}
		return domain.StatusPresent
	}
	start := time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)

	records := Backfill(1, start, end, mondays)
	require.Len(t, records, 5)
	assert.Equal(t, domain.StatusAbsent, records[0].Status)
	for _, r := range records[1:] {
		assert.Equal(t, domain.StatusPresent, r.Status)
	}
}

func TestBackfillEmptyWindow(t *testing.T) {
	sat := time.Date(2025, time.June, 7, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, Backfill(1, sat, sat.AddDate(0, 0, 1), Always(domain.StatusPresent)))
	assert.Empty(t, Backfill(1, sat, sat.AddDate(0, 0, -3), Always(domain.StatusPresent)))
}

func TestRandomStatusExtremes(t *testing.T) {
	always := RandomStatus(1)
	never := RandomStatus(0)
	for i := 0; i < 50; i++ {
		assert.Equal(t, domain.StatusPresent, always(time.Time{}))
		assert.Equal(t, domain.StatusAbsent, never(time.Time{}))
	}
}

package recurrence

import (
	"testing"
	"time"

	"github.com/phrazzld/sprout-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_TodayUsesLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2024, time.May, 1, 23, 30, 0, 0, time.UTC)
	svc := NewServiceWithClock(loc, func() time.Time { return now })

	assert.Equal(t, date(2024, time.May, 2), svc.Today())

	utc := NewServiceWithClock(nil, func() time.Time { return now })
	assert.Equal(t, date(2024, time.May, 1), utc.Today())
}

func TestService_NextDueAndNextAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(time.UTC, func() time.Time { return now })

	got, err := svc.NextDue(date(2024, time.May, 1), 7, domain.IntervalUnitDays)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 8), got)

	// Successor of an occurrence due May 8 completed three days late.
	got, err = svc.NextAfter(date(2024, time.May, 1), 7, domain.IntervalUnitDays, date(2024, time.May, 8))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 15), got)

	// Month successors follow the anchor day, not the clamped previous date.
	got, err = svc.NextAfter(date(2024, time.January, 31), 1, domain.IntervalUnitMonths, date(2024, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.May, 31), got)
}

package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// NextDue returns the first date of the recurrence defined by anchor and
// interval that falls strictly after today.
//
// An anchor in the future is returned unchanged. An anchor equal to today
// yields anchor plus one interval. For past anchors the number of whole
// intervals elapsed is computed directly, so the cost does not depend on how
// long the schedule has been dormant.
func NextDue(anchor civil.Date, value int, unit domain.IntervalUnit, today civil.Date) (civil.Date, error) {
	if err := validateInterval(value, unit); err != nil {
		return civil.Date{}, err
	}

	if anchor.After(today) {
		return anchor, nil
	}

	var elapsed int
	switch unit {
	case domain.IntervalUnitDays:
		elapsed = today.DaysSince(anchor)
	case domain.IntervalUnitMonths:
		elapsed = monthsBetween(anchor, today)
	}

	n := elapsed / value
	candidate := step(anchor, n*value, unit)
	if !candidate.After(today) {
		candidate = step(anchor, (n+1)*value, unit)
	}

	return candidate, nil
}

// AddMonths adds n calendar months to d. The day of month is clamped to the
// length of the target month, so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(d civil.Date, n int) civil.Date {
	total := d.Year*12 + int(d.Month) - 1 + n
	year := floorDiv(total, 12)
	month := time.Month(total - year*12 + 1)

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}

	return civil.Date{Year: year, Month: month, Day: day}
}

func step(d civil.Date, n int, unit domain.IntervalUnit) civil.Date {
	if unit == domain.IntervalUnitMonths {
		return AddMonths(d, n)
	}
	return d.AddDays(n)
}

// monthsBetween counts calendar-month boundaries from a to b, ignoring days.
func monthsBetween(a, b civil.Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func validateInterval(value int, unit domain.IntervalUnit) error {
	if value < 1 || !unit.Valid() {
		return domain.ErrInvalidInterval
	}
	return nil
}

package recurrence

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/phrazzld/sprout-api/internal/domain"
)

// Service computes due dates relative to a clock in a fixed location.
type Service interface {
	// Today returns the current calendar date in the service's location.
	Today() civil.Date

	// NextDue returns the first recurrence date strictly after today.
	NextDue(anchor civil.Date, value int, unit domain.IntervalUnit) (civil.Date, error)

	// NextAfter returns the first recurrence date strictly after the given date.
	NextAfter(anchor civil.Date, value int, unit domain.IntervalUnit, after civil.Date) (civil.Date, error)
}

type defaultService struct {
	loc *time.Location
	now func() time.Time
}

// NewService creates a Service reading the wall clock in loc.
// A nil loc means UTC.
func NewService(loc *time.Location) Service {
	return NewServiceWithClock(loc, time.Now)
}

// NewServiceWithClock creates a Service with a custom clock, used by tests.
func NewServiceWithClock(loc *time.Location, now func() time.Time) Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &defaultService{loc: loc, now: now}
}

func (s *defaultService) Today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

func (s *defaultService) NextDue(anchor civil.Date, value int, unit domain.IntervalUnit) (civil.Date, error) {
	return NextDue(anchor, value, unit, s.Today())
}

func (s *defaultService) NextAfter(
	anchor civil.Date,
	value int,
	unit domain.IntervalUnit,
	after civil.Date,
) (civil.Date, error) {
	return NextDue(anchor, value, unit, after)
}

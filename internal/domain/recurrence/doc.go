// Package recurrence computes due dates for recurring care tasks.
//
// All arithmetic is done on calendar dates (civil.Date), so results never
// depend on the time zone of the caller. Next dates are always derived from a
// rule's anchor and interval rather than from the previous result, which keeps
// month-unit schedules from drifting after a short month clamps the day.
package recurrence
